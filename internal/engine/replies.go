package engine

import (
	"fmt"
	"strings"

	"github.com/flitsinc/go-calendar/internal/state"
)

// Fixed replies. None of them carries internal error text.
const (
	replyEmptyMessage = "Tell me what you'd like to do with your calendar. " +
		"For example: 'schedule lunch tomorrow at 1pm' or 'what did I do last Friday?'."

	replyScheduleFailed = "I tried to schedule that but ran into an internal error. " +
		"Make sure your OpenAI API key is set, then try again."

	replyQueryEmpty  = "I checked your calendar but didn't find anything that matches that."
	replyQueryFailed = "I tried to look that up but something went wrong on my side. Try rephrasing the question."

	replyDeleteNoDate = "It sounds like you want to remove some events, but I couldn't figure out exactly which date. " +
		"Try something like 'remove all events on December 7th'."
	replyDeleteFailed = "I understood that you want to delete events, but I hit an error while trying to modify the calendar. " +
		"Try again in a moment or with a simpler request."

	replyHelp = "I'm not totally sure what you wanted, but I tried treating it as a question about your calendar " +
		"and didn't find anything obvious.\n\n" +
		"You can say things like:\n" +
		"- 'What did I do yesterday?'\n" +
		"- 'What do I have next week?'\n" +
		"- 'Schedule dinner with Sam tomorrow at 8pm.'"

	replyPipelineFailed = "Sorry, I couldn't complete that calendar request. Please try again or rephrase it."
	replyPipelineEmpty  = "I processed your request, but I don't have anything to add."
)

func scheduledReply(in state.EventInput) string {
	title := in.Title
	if title == "" {
		title = "Untitled"
	}
	lines := []string{
		fmt.Sprintf("Got it, I've added **%s** to your calendar.", title),
		"",
		"- Start: " + in.StartTime,
		"- End:   " + in.EndTime,
	}
	if in.Location != "" {
		lines = append(lines, "- Location: "+in.Location)
	}
	if in.Description != "" {
		lines = append(lines, "- Notes: "+in.Description)
	}
	lines = append(lines, "", "You should see it in your calendar now.")
	return strings.Join(lines, "\n")
}

func deletedReply(date string, n int64) string {
	switch n {
	case 0:
		return fmt.Sprintf("I looked at %s, but there were no events to delete.", date)
	case 1:
		return fmt.Sprintf("Done, I removed 1 event on %s.", date)
	default:
		return fmt.Sprintf("Done, I removed %d events on %s.", n, date)
	}
}
