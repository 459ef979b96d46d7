// Package report renders the driver's progress lines and final run
// summary, adapted from the teacher's Summary/Statistics/text-template
// shape (internal/report.Generator) onto the kill-bookkeeping domain.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/sivchari/dredd/internal/kill"
)

// Progress is one status line, emitted by the driver after every search
// attempt (spec.md §7: total mutants, covered, killed, remaining, round,
// remaining-in-round).
type Progress struct {
	Round          int `json:"round"`
	TotalMutants   int `json:"totalMutants"`
	CoveredMutants int `json:"coveredMutants"`
	Killed         int `json:"killed"`
	Remaining      int `json:"remaining"`
	RemainingRound int `json:"remainingInRound"`
}

// Summary is the final report produced when a run ends.
type Summary struct {
	TotalMutants int            `json:"totalMutants"`
	Killed       int            `json:"killed"`
	Unkilled     int            `json:"unkilled"`
	Score        float64        `json:"mutationScore"`
	Statuses     map[string]int `json:"statusCounts"`
	Duration     time.Duration  `json:"duration"`
	Timestamp    time.Time      `json:"timestamp"`
	Version      string         `json:"version,omitempty"`
}

const driverVersion = "0.1.0"

// Reporter writes progress lines and final summaries to an output writer.
type Reporter struct {
	out    io.Writer
	format string
}

// New creates a Reporter. format is "json" or "text"; anything else falls
// back to "text".
func New(out io.Writer, format string) *Reporter {
	return &Reporter{out: out, format: format}
}

// Progress writes one progress line reflecting the current state of maps.
func (r *Reporter) Progress(round, totalMutants, coveredMutants int, maps *kill.Maps) error {
	remainingInRound := 0
	for _, mutantRound := range maps.Unkilled {
		if mutantRound == round {
			remainingInRound++
		}
	}

	p := Progress{
		Round:          round,
		TotalMutants:   totalMutants,
		CoveredMutants: coveredMutants,
		Killed:         len(maps.Killed),
		Remaining:      len(maps.Unkilled),
		RemainingRound: remainingInRound,
	}

	switch r.format {
	case "json":
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to marshal progress: %w", err)
		}

		_, err = fmt.Fprintln(r.out, string(data))

		return err
	default:
		_, err := fmt.Fprintf(r.out,
			"round %d: %d/%d killed, %d remaining (%d covered, %d left this round)\n",
			p.Round, p.Killed, p.TotalMutants, p.Remaining, p.CoveredMutants, p.RemainingRound,
		)

		return err
	}
}

// Final writes the closing summary for a run.
func (r *Reporter) Final(maps *kill.Maps, numMutations int, duration time.Duration) error {
	summary := r.buildSummary(maps, numMutations, duration)

	switch r.format {
	case "json":
		return r.writeJSON(summary)
	default:
		return r.writeText(summary)
	}
}

func (r *Reporter) buildSummary(maps *kill.Maps, numMutations int, duration time.Duration) *Summary {
	statuses := make(map[string]int)
	for _, status := range maps.Killed {
		statuses[status.String()]++
	}

	score := 0.0
	if numMutations > 0 {
		score = float64(len(maps.Killed)) / float64(numMutations) * 100
	}

	return &Summary{
		TotalMutants: numMutations,
		Killed:       len(maps.Killed),
		Unkilled:     len(maps.Unkilled),
		Score:        score,
		Statuses:     statuses,
		Duration:     duration,
		Timestamp:    time.Now(),
		Version:      driverVersion,
	}
}

func (r *Reporter) writeJSON(summary *Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	_, err = fmt.Fprintln(r.out, string(data))

	return err
}

const textSummaryTemplate = `
Mutation Kill Summary
=====================

Total mutants: {{.TotalMutants}}
Killed:        {{.Killed}}
Unkilled:      {{.Unkilled}}
Score:         {{printf "%.1f" .Score}}%
Duration:      {{.Duration}}

Kill status breakdown:
{{range $status, $count := .Statuses}}  {{$status}}: {{$count}}
{{end}}
`

var summaryTmpl = template.Must(template.New("summary").Parse(textSummaryTemplate))

func (r *Reporter) writeText(summary *Summary) error {
	if err := summaryTmpl.Execute(r.out, summary); err != nil {
		return fmt.Errorf("failed to execute summary template: %w", err)
	}

	return nil
}
