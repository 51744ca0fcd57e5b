package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Zuo-Peng/codex-transcripts/internal/conversation"
	"github.com/Zuo-Peng/codex-transcripts/internal/parse"
	"github.com/Zuo-Peng/codex-transcripts/internal/project"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type inspectOutput struct {
	Path               string               `json:"path" yaml:"path"`
	ID                 string               `json:"id" yaml:"id"`
	StartedAt          string               `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Cwd                string               `json:"cwd,omitempty" yaml:"cwd,omitempty"`
	Project            string               `json:"project" yaml:"project"`
	Git                *parse.Git           `json:"git,omitempty" yaml:"git,omitempty"`
	InstructionRepeats int                  `json:"instruction_repeats" yaml:"instruction_repeats"`
	Events             eventCounts          `json:"events" yaml:"events"`
	Totals             conversationTotals   `json:"totals" yaml:"totals"`
	Conversations      []conversationReport `json:"conversations" yaml:"conversations"`
}

type eventCounts struct {
	Total       int `json:"total" yaml:"total"`
	Messages    int `json:"messages" yaml:"messages"`
	ToolCalls   int `json:"tool_calls" yaml:"tool_calls"`
	ToolOutputs int `json:"tool_outputs" yaml:"tool_outputs"`
	Leading     int `json:"before_first_prompt" yaml:"before_first_prompt"`
}

type conversationTotals struct {
	Prompts   int `json:"prompts" yaml:"prompts"`
	Messages  int `json:"messages" yaml:"messages"`
	ToolCalls int `json:"tool_calls" yaml:"tool_calls"`
	Commits   int `json:"commits" yaml:"commits"`
	Pages     int `json:"pages" yaml:"pages"`
}

type conversationReport struct {
	Number    int            `json:"number" yaml:"number"`
	Page      int            `json:"page" yaml:"page"`
	Link      string         `json:"link" yaml:"link"`
	Timestamp string         `json:"timestamp" yaml:"timestamp"`
	Prompt    string         `json:"prompt" yaml:"prompt"`
	Events    int            `json:"events" yaml:"events"`
	Tools     map[string]int `json:"tools,omitempty" yaml:"tools,omitempty"`
	Commits   []string       `json:"commits,omitempty" yaml:"commits,omitempty"`
	LongTexts int            `json:"long_texts,omitempty" yaml:"long_texts,omitempty"`
}

func inspectCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Dump session metadata and per-conversation statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s, err := parse.ParseFile(args[0])
			if err != nil {
				return err
			}
			out := buildInspect(s, cfg.PromptsPerPage, cfg.LongTextThreshold)
			return writeInspect(cmd.OutOrStdout(), out, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "yaml", "Output format (yaml|json)")
	return cmd
}

func buildInspect(s *parse.Session, perPage, longTextThreshold int) inspectOutput {
	_, name := project.ResolveKey(s)
	out := inspectOutput{
		Path:               s.SourcePath,
		ID:                 s.ID,
		StartedAt:          s.StartedAt,
		Cwd:                s.Cwd,
		Project:            name,
		Git:                s.Git,
		InstructionRepeats: s.InstructionRepeats,
	}

	for _, e := range s.Events {
		out.Events.Total++
		switch e.Kind {
		case parse.KindMessage:
			out.Events.Messages++
		case parse.KindToolCall:
			out.Events.ToolCalls++
		case parse.KindToolOutput:
			out.Events.ToolOutputs++
		}
	}
	out.Events.Leading = len(conversation.Leading(s.Events))

	convs := conversation.Group(s.Events)
	summaries := conversation.Summarize(convs, perPage, longTextThreshold)
	totals := conversation.Total(convs, summaries, perPage)
	out.Totals = conversationTotals(totals)

	out.Conversations = make([]conversationReport, 0, len(summaries))
	for i, sum := range summaries {
		rep := conversationReport{
			Number:    sum.Number,
			Page:      sum.Page,
			Link:      sum.Link(),
			Timestamp: sum.Timestamp,
			Prompt:    parse.Truncate(sum.UserText, 120),
			Events:    len(convs[i].Events),
			LongTexts: len(sum.Stats.LongTexts),
		}
		if len(sum.Stats.ToolCounts) > 0 {
			rep.Tools = sum.Stats.ToolCounts
		}
		for _, c := range sum.Stats.Commits {
			rep.Commits = append(rep.Commits, c.Hash+" "+c.Message)
		}
		out.Conversations = append(out.Conversations, rep)
	}
	return out
}

func writeInspect(w io.Writer, out inspectOutput, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "yaml", "yml":
		data, err := yaml.Marshal(out)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", format)
	}
}
