// Package slack renders league data as Slack Block Kit messages.
package slack

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mauv0809/naseliga/internal/standings"
	"github.com/slack-go/slack"
)

// ParseLeaderboardCommand reads the text of the /leaderboard slash command.
// "all" includes inactive players; a number selects the as-of event.
func ParseLeaderboardCommand(text string) (standings.Query, error) {
	var q standings.Query
	for _, field := range strings.Fields(text) {
		if strings.EqualFold(field, "all") {
			q.IncludeInactive = true
			continue
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(field, "#"), 10, 64)
		if err != nil || id <= 0 {
			return standings.Query{}, fmt.Errorf("unknown argument %q, expected \"all\" or an event id", field)
		}
		q.AsOfEventID = id
	}
	return q, nil
}

// FormatLeaderboard creates a Slack message to display the leaderboard.
func FormatLeaderboard(entries []standings.Entry, q standings.Query) slack.Message {
	blocks := make([]slack.Block, 0, len(entries)+2)

	headerText := slack.NewTextBlockObject("plain_text", "🏆 Squash Leaderboard 🏆", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	var scope []string
	if q.AsOfEventID != 0 {
		scope = append(scope, fmt.Sprintf("as of event #%d", q.AsOfEventID))
	}
	if q.IncludeInactive {
		scope = append(scope, "including inactive players")
	} else {
		scope = append(scope, "active players only")
	}
	blocks = append(blocks, slack.NewContextBlock("", slack.NewTextBlockObject("mrkdwn", strings.Join(scope, " · "), false, false)))

	if len(entries) == 0 {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", "No ranked matches yet. Go play some squash!", true, false), nil, nil))
		return inChannel(slack.NewBlockMessage(blocks...))
	}

	for i, entry := range entries {
		rank := i + 1
		var medal string
		switch rank {
		case 1:
			medal = "🥇 "
		case 2:
			medal = "🥈 "
		case 3:
			medal = "🥉 "
		}
		playerText := fmt.Sprintf("%d. %s*%s*", rank, medal, entry.Name)
		if entry.Country != "" {
			playerText += fmt.Sprintf(" (%s)", entry.Country)
		}
		playerText += fmt.Sprintf("\n> Rating: %d", entry.Score)
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", playerText, false, false), nil, nil))
	}

	return inChannel(slack.NewBlockMessage(blocks...))
}

// FormatError creates an ephemeral message shown only to the caller.
func FormatError(text string) slack.Message {
	msg := slack.NewBlockMessage(
		slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", ":warning: "+text, false, false), nil, nil),
	)
	msg.ResponseType = slack.ResponseTypeEphemeral
	return msg
}

func inChannel(msg slack.Message) slack.Message {
	msg.ResponseType = slack.ResponseTypeInChannel
	return msg
}
