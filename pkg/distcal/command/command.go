// Package command turns a text command line into a typed Command,
// a thin external collaborator that never touches node state itself.
package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jabolina/distcal/pkg/distcal/types"
)

// Kind distinguishes the shapes of Command.
type Kind int

const (
	Schedule Kind = iota
	Cancel
	Fail
	Quit
	Log
	Malformed
)

// Command is the parser's output; which fields are meaningful depends on
// Kind: User for Schedule, Cancel and Fail; Appointment and Name for
// Schedule and Cancel; Reason for Malformed.
type Command struct {
	Kind        Kind
	User        types.NodeID
	Appointment types.Appointment
	Name        string
	Reason      string
}

// Parse tokenizes one line of the node's command language:
//
//	user<id> schedules <name> (user<a>,user<b>,...) (<HH:MMxm>,<HH:MMxm>) <Day>
//	user<id> cancels <name> (user<a>,user<b>,...) (<HH:MMxm>,<HH:MMxm>) <Day>
//	user<id> (fails|crashes|goes down)
//	quit
//	log
func Parse(line string) (Command, error) {
	line = strings.TrimSpace(line)
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return malformed("empty command"), nil
	}

	switch strings.ToLower(fields[0]) {
	case "quit":
		return Command{Kind: Quit}, nil
	case "log":
		return Command{Kind: Log}, nil
	}

	user, err := parseUser(fields[0])
	if err != nil {
		return malformed(err.Error()), nil
	}

	if len(fields) >= 2 {
		switch strings.ToLower(fields[1]) {
		case "fails", "crashes":
			return Command{Kind: Fail, User: user}, nil
		case "goes":
			if len(fields) >= 3 && strings.ToLower(fields[2]) == "down" {
				return Command{Kind: Fail, User: user}, nil
			}
		}
	}

	if len(fields) < 5 {
		return malformed(fmt.Sprintf("expected schedule/cancel command, got %q", line)), nil
	}

	var kind Kind
	switch strings.ToLower(fields[1]) {
	case "schedules":
		kind = Schedule
	case "cancels":
		kind = Cancel
	default:
		return malformed(fmt.Sprintf("unknown verb %q", fields[1])), nil
	}

	name := fields[2]
	rest := strings.Join(fields[3:], " ")

	participantsField, rest, err := takeParenGroup(rest)
	if err != nil {
		return malformed(err.Error()), nil
	}
	participants, err := parseParticipants(participantsField)
	if err != nil {
		return malformed(err.Error()), nil
	}

	timeField, rest, err := takeParenGroup(rest)
	if err != nil {
		return malformed(err.Error()), nil
	}
	start, end, err := parseTimeRange(timeField)
	if err != nil {
		return malformed(err.Error()), nil
	}

	dayField := strings.TrimSpace(rest)
	day, err := types.ParseWeekday(dayField)
	if err != nil {
		return malformed(err.Error()), nil
	}

	appt := types.Appointment{
		Name:         name,
		Participants: participants,
		Day:          day,
		Start:        start,
		End:          end,
	}
	if err := appt.Validate(); err != nil {
		return malformed(err.Error()), nil
	}

	return Command{Kind: kind, User: user, Appointment: appt, Name: name}, nil
}

func malformed(reason string) Command {
	return Command{Kind: Malformed, Reason: reason}
}

func parseUser(token string) (types.NodeID, error) {
	if !strings.HasPrefix(strings.ToLower(token), "user") {
		return 0, fmt.Errorf("expected a userN token, got %q", token)
	}
	id, err := strconv.Atoi(token[len("user"):])
	if err != nil {
		return 0, fmt.Errorf("invalid user id in %q", token)
	}
	return types.NodeID(id), nil
}

// takeParenGroup extracts the first "(...)" group from s, returning its
// inner contents and the remainder of s after the closing paren.
func takeParenGroup(s string) (inner, remainder string, err error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") {
		return "", "", fmt.Errorf("expected '(' in %q", s)
	}
	end := strings.Index(s, ")")
	if end < 0 {
		return "", "", fmt.Errorf("unterminated '(' in %q", s)
	}
	return s[1:end], s[end+1:], nil
}

func parseParticipants(field string) ([]types.NodeID, error) {
	parts := strings.Split(field, ",")
	participants := make([]types.NodeID, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := parseUser(p)
		if err != nil {
			return nil, err
		}
		participants = append(participants, id)
	}
	if len(participants) == 0 {
		return nil, fmt.Errorf("no participants in %q", field)
	}
	return participants, nil
}

func parseTimeRange(field string) (types.TimeOfDay, types.TimeOfDay, error) {
	parts := strings.SplitN(field, ",", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected '<start>,<end>' in %q", field)
	}
	start, err := parseClockTime(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	end, err := parseClockTime(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// parseClockTime parses "<H:MM><am|pm>", e.g. "1:30pm".
func parseClockTime(token string) (types.TimeOfDay, error) {
	lower := strings.ToLower(token)
	var pm bool
	switch {
	case strings.HasSuffix(lower, "am"):
		pm = false
	case strings.HasSuffix(lower, "pm"):
		pm = true
	default:
		return 0, fmt.Errorf("time %q missing am/pm suffix", token)
	}
	digits := lower[:len(lower)-2]
	hm := strings.SplitN(digits, ":", 2)
	if len(hm) != 2 {
		return 0, fmt.Errorf("time %q not in H:MM form", token)
	}
	hour, err := strconv.Atoi(hm[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", token)
	}
	minute, err := strconv.Atoi(hm[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q", token)
	}
	return types.NewTimeOfDay(hour, minute, pm)
}
