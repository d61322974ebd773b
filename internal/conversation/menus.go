package conversation

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/hgbot/hgbot/internal/directory"
	"github.com/hgbot/hgbot/internal/session"
)

var groupMarkers = []string{"🔵", "🟢", "🟡", "🟠", "🔴", "🟣", "🟤", "⚪️", "⚫️", "🔷"}

// groupMarker picks a decorative emoji from the last character of the group id.
func groupMarker(groupID string) string {
	r := []rune(groupID)
	if len(r) == 0 {
		return groupMarkers[0]
	}
	sum := xxhash.Sum64String(string(r[len(r)-1]))
	return groupMarkers[sum%uint64(len(groupMarkers))]
}

func groupMenu(memberships []directory.Membership) Menu {
	rows := make([][]Choice, 0, len(memberships))
	for _, m := range memberships {
		label := fmt.Sprintf("%s Группа %s", groupMarker(m.GroupID), m.GroupID)
		rows = append(rows, []Choice{{Label: label, Token: groupToken(m.GroupID)}})
	}
	return Menu{Kind: MenuInline, Rows: rows}
}

func dateMenu() Menu {
	return Menu{Kind: MenuReply, Rows: [][]Choice{
		{{Label: dayBeforeYesterday}},
		{{Label: yesterday}},
		{{Label: today}},
	}}
}

func reasonMenu() Menu {
	rows := make([][]Choice, 0, len(Reasons))
	for _, reason := range Reasons {
		rows = append(rows, []Choice{{Label: reason}})
	}
	return Menu{Kind: MenuReply, Rows: rows}
}

func removeMenu() Menu {
	return Menu{Kind: MenuRemove}
}

func markMenu(roster []string) Menu {
	rows := make([][]Choice, 0, 2*len(roster)+2)
	for i, name := range roster {
		rows = append(rows,
			[]Choice{{Label: name, Token: tokenNoop}},
			[]Choice{{Label: labelPresent, Token: presentToken(i)}, {Label: labelAbsent, Token: absentToken(i)}},
		)
	}
	rows = append(rows,
		[]Choice{{Label: labelConfirmMarks, Token: tokenReview}},
		[]Choice{{Label: labelNoMeeting, Token: tokenNoMeeting}},
	)
	return Menu{Kind: MenuInline, Rows: rows}
}

func reviewMenu() Menu {
	return Menu{Kind: MenuInline, Rows: [][]Choice{{{Label: labelAllCorrect, Token: tokenConfirm}}}}
}

func yesNoMenu() Menu {
	return Menu{Kind: MenuInline, Rows: [][]Choice{{
		{Label: labelYes, Token: tokenYes},
		{Label: labelNo, Token: tokenNo},
	}}}
}

func guestMenu(returning []string) Menu {
	rows := make([][]Choice, 0, len(returning)+1)
	for i, name := range returning {
		rows = append(rows, []Choice{{Label: name, Token: tokenNoop}, {Label: labelPresent, Token: guestToken(i)}})
	}
	rows = append(rows, []Choice{{Label: labelFinishGuests, Token: tokenGuestsDone}})
	return Menu{Kind: MenuInline, Rows: rows}
}

// reviewText lists every roster member with its mark.
func reviewText(s session.Session) string {
	lines := make([]string, 0, len(s.Roster))
	for _, name := range s.Roster {
		mark := s.Marks[name]
		if mark.Presence == session.Absent {
			lines = append(lines, fmt.Sprintf("%s: %s %s", name, labelAbsent, mark.Reason))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", name, labelPresent))
	}
	return strings.Join(lines, "\n")
}
