package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/hgbot/hgbot/internal/directory"
	"github.com/hgbot/hgbot/internal/session"
)

// qaStage is one follow-up question: an optional yes/no interest step, a
// free-text capture and a confirmation.
type qaStage struct {
	ask       session.State
	input     session.State
	confirm   session.State
	askText   string
	inputText string
	field     func(*session.Answers) *string
}

var qaStages = []qaStage{
	{
		input:     session.StateSpiritualSummary,
		confirm:   session.StateConfirmSummary,
		inputText: msgSummaryPrompt,
		field:     func(a *session.Answers) *string { return &a.SpiritualSummary },
	},
	{
		ask:       session.StateTestimonies,
		input:     session.StateTestimoniesInput,
		confirm:   session.StateConfirmTestimonies,
		askText:   msgTestimonyAsk,
		inputText: msgTestimonyPrompt,
		field:     func(a *session.Answers) *string { return &a.Testimony },
	},
	{
		ask:       session.StatePersonalMeetings,
		input:     session.StatePersonalMeetingsInput,
		confirm:   session.StateConfirmPersonalMeetings,
		askText:   msgPersonalAsk,
		inputText: msgPersonalPrompt,
		field:     func(a *session.Answers) *string { return &a.PersonalMeetings },
	},
	{
		ask:       session.StateNewlyAssigned,
		input:     session.StateNewlyAssignedInput,
		confirm:   session.StateConfirmNewlyAssigned,
		askText:   msgNewlyAsk,
		inputText: msgNewlyPrompt,
		field:     func(a *session.Answers) *string { return &a.NewlyAssigned },
	},
}

func (e *Engine) askStep(i int) stepFunc {
	st := qaStages[i]
	return func(ctx context.Context, s *session.Session, _ directory.Identity, ev Event) (Result, error) {
		yes, ok := answer(ev)
		if !ok {
			return rejected(st.askText, yesNoMenu()), nil
		}
		if !yes {
			*st.field(&s.Answers) = ""
			return e.advance(ctx, s, i)
		}
		s.Mode = st.input
		var res Result
		res.say(st.inputText)
		return res, nil
	}
}

func (e *Engine) inputStep(i int) stepFunc {
	st := qaStages[i]
	return func(_ context.Context, s *session.Session, _ directory.Identity, ev Event) (Result, error) {
		if ev.Kind != EventText {
			return rejected(st.inputText, Menu{}), nil
		}
		text := strings.TrimSpace(ev.Text)
		if text == "" {
			return rejected(msgAnswerEmpty, Menu{}), nil
		}
		*st.field(&s.Answers) = text
		s.Mode = st.confirm
		var res Result
		res.sayWith(fmt.Sprintf(msgAnswerCheck, text), yesNoMenu())
		return res, nil
	}
}

func (e *Engine) confirmStep(i int) stepFunc {
	st := qaStages[i]
	return func(ctx context.Context, s *session.Session, _ directory.Identity, ev Event) (Result, error) {
		yes, ok := answer(ev)
		if !ok {
			return rejected(msgChooseYesNo, yesNoMenu()), nil
		}
		if yes {
			return e.advance(ctx, s, i)
		}
		s.Mode = st.input
		var res Result
		res.say(msgAnswerRetry)
		return res, nil
	}
}

// advance moves past stage i, finalizing the report after the last one.
func (e *Engine) advance(ctx context.Context, s *session.Session, i int) (Result, error) {
	if i+1 < len(qaStages) {
		next := qaStages[i+1]
		s.Mode = next.ask
		var res Result
		res.sayWith(next.askText, yesNoMenu())
		return res, nil
	}
	if err := e.submitter.SubmitFreeText(ctx, *s); err != nil {
		return Result{}, err
	}
	groupID, date := s.GroupID, s.MeetingDate
	*s = session.New()
	s.Mode = session.StateFinished

	var res Result
	res.sayWith(fmt.Sprintf(msgFinished, groupID, FormatDate(date)), removeMenu())
	return res, nil
}
