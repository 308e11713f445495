package command

import "strings"

type HelpTopic struct {
	Name    string
	Summary string
	Lines   []string
}

var NewRelicHelp = HelpTopic{
	Name:    "newrelic",
	Summary: "manage newrelic alerts",
	Lines: []string{
		"list - show a list of newrelic applications",
		"enable <appname> - enable application monitoring",
		"disable <appname> - disable application monitoring",
	},
}

func (h HelpTopic) String() string {
	var b strings.Builder
	b.WriteString(h.Name)
	b.WriteString(": ")
	b.WriteString(h.Summary)
	for _, line := range h.Lines {
		b.WriteString("\n")
		b.WriteString(line)
	}
	return b.String()
}
