package types

import (
	"strings"
	"time"
)

// Chain identifies a device chain application.
type Chain string

const (
	ChainBTC Chain = "BTC"
	ChainETH Chain = "ETH"
	ChainXRP Chain = "XRP"
)

// DefaultProbeOrder is the order chains are asked for a pending transaction.
var DefaultProbeOrder = []Chain{ChainBTC, ChainETH, ChainXRP}

// ParseChain accepts a chain name in any case.
func ParseChain(s string) (Chain, bool) {
	switch Chain(strings.ToUpper(strings.TrimSpace(s))) {
	case ChainBTC:
		return ChainBTC, true
	case ChainETH:
		return ChainETH, true
	case ChainXRP:
		return ChainXRP, true
	}
	return "", false
}

// Metadata is the pending transaction snapshot a chain applet reports.
// Length is the size of the serialized transaction in bytes.
type Metadata struct {
	Chain         Chain         `json:"chain"`
	TooBig        bool          `json:"too_big"`
	Length        uint16        `json:"length"`
	RemainingTime time.Duration `json:"remaining_time"`

	// BTC
	NumberOfInputs uint32 `json:"number_of_inputs,omitempty"`

	// ETH
	TxType uint16 `json:"tx_type,omitempty"`
	From   []byte `json:"from,omitempty"` // 20 字节地址
}

// Countdown returns the confirmation window in whole seconds.
func (m Metadata) Countdown() int {
	return int(m.RemainingTime / time.Second)
}

// Field is one line of a decoded transaction. Children hold nested objects
// (XRP memos, BTC inputs) and are rendered one tab deeper.
type Field struct {
	Name     string  `json:"name"`
	Value    string  `json:"value,omitempty"`
	Children []Field `json:"children,omitempty"`
}

// DecodedTransaction is what the user compares with the host's screen.
type DecodedTransaction struct {
	Chain Chain `json:"chain"`
	// Summary is the primary view.
	Summary []Field `json:"summary"`
	// Details is the complete field tree; empty when Summary already is the full tree.
	Details []Field `json:"details,omitempty"`
	// Countdown is the remaining confirmation time in seconds.
	Countdown int      `json:"countdown"`
	Warnings  []string `json:"warnings,omitempty"`
}

// HasDetails reports whether a secondary detail view exists.
func (d *DecodedTransaction) HasDetails() bool {
	return len(d.Details) > 0
}

// Text renders the summary as "Name: value" lines with tab indentation.
func (d *DecodedTransaction) Text() string {
	return RenderFields(d.Summary)
}

// DetailText renders the detail tree, falling back to the summary.
func (d *DecodedTransaction) DetailText() string {
	if !d.HasDetails() {
		return d.Text()
	}
	return RenderFields(d.Details)
}

// RenderFields renders a field tree one line per field.
func RenderFields(fields []Field) string {
	var sb strings.Builder
	renderFields(&sb, fields, 0)
	return sb.String()
}

func renderFields(sb *strings.Builder, fields []Field, depth int) {
	for _, f := range fields {
		sb.WriteString(strings.Repeat("\t", depth))
		sb.WriteString(f.Name)
		sb.WriteString(":")
		if f.Value != "" {
			sb.WriteString(" ")
			sb.WriteString(f.Value)
		}
		sb.WriteString("\n")
		renderFields(sb, f.Children, depth+1)
	}
}
