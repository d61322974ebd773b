package channel

import (
	"context"
	"strings"
)

// MaxMessageLength is the longest text, in runes, sent as one message.
const MaxMessageLength = 4096

// ChunkedSender splits text longer than MaxMessageLength at line boundaries
// before handing it to the platform sender. The keyboard is attached to the
// last part.
type ChunkedSender struct {
	Sender
}

func (s ChunkedSender) Send(ctx context.Context, msg OutboundMessage) error {
	parts := ChunkText(msg.Text, MaxMessageLength)
	for i, part := range parts {
		out := OutboundMessage{ChatID: msg.ChatID, Text: part}
		if i == len(parts)-1 {
			out.Keyboard = msg.Keyboard
		}
		if err := s.Sender.Send(ctx, out); err != nil {
			return err
		}
	}
	return nil
}

// ChunkText splits text at newline boundaries, respecting the rune limit.
func ChunkText(text string, limit int) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if limit <= 0 || runeLen(trimmed) <= limit {
		return []string{trimmed}
	}
	lines := strings.Split(trimmed, "\n")
	var chunks []string
	buf := make([]string, 0, len(lines))
	bufLen := 0
	flush := func() {
		if len(buf) > 0 {
			chunks = append(chunks, strings.Join(buf, "\n"))
			buf = buf[:0]
			bufLen = 0
		}
	}
	for _, line := range lines {
		lineLen := runeLen(line)
		sepLen := 0
		if len(buf) > 0 {
			sepLen = 1
		}
		if bufLen+sepLen+lineLen <= limit {
			buf = append(buf, line)
			bufLen += sepLen + lineLen
			continue
		}
		flush()
		if lineLen <= limit {
			buf = append(buf, line)
			bufLen = lineLen
			continue
		}
		chunks = append(chunks, splitLongLine(line, limit)...)
	}
	flush()
	return chunks
}

func runeLen(value string) int {
	return len([]rune(value))
}

func splitLongLine(line string, limit int) []string {
	runes := []rune(line)
	var chunks []string
	for start := 0; start < len(runes); start += limit {
		end := min(start+limit, len(runes))
		if segment := strings.TrimSpace(string(runes[start:end])); segment != "" {
			chunks = append(chunks, segment)
		}
	}
	return chunks
}
