// Package compile translates a materialized edit state into the ordered,
// engine-agnostic instruction list submitted to the external render engine.
package compile

import (
	"fmt"
	"strings"
)

// Op categorizes an instruction. Categories with nothing to do are omitted
// from the list entirely.
type Op string

const (
	OpTrim       Op = "trim"
	OpCrop       Op = "crop"
	OpScale      Op = "scale"
	OpColorGrade Op = "colorgrade"
	OpSpeed      Op = "speed"
	OpDrawText   Op = "drawtext"
	OpTransition Op = "transition"
	OpVolume     Op = "volume"
	OpAudioMix   Op = "audiomix"
)

// Instruction is one primitive operation for the render engine, expressed in
// the engine's key=value filter grammar.
type Instruction struct {
	Op   Op     `json:"op"`
	Expr string `json:"expr"`
}

func (i Instruction) String() string { return i.Expr }

// Args renders an instruction list as the ordered argument list handed to
// the engine.
func Args(instructions []Instruction) []string {
	out := make([]string, 0, len(instructions))
	for _, in := range instructions {
		out = append(out, in.Expr)
	}
	return out
}

// ParseExpr splits a "name=k1=v1:k2=v2" expression into its filter name and
// parameter map. Used by the engine translator and by parity checks.
func ParseExpr(expr string) (string, map[string]string) {
	name, rest, ok := strings.Cut(expr, "=")
	params := map[string]string{}
	if !ok {
		return name, params
	}
	for _, part := range strings.Split(rest, ":") {
		if k, v, ok := strings.Cut(part, "="); ok {
			params[k] = v
		}
	}
	return name, params
}

func expr(name string, pairs ...string) string {
	if len(pairs) == 0 {
		return name
	}
	return fmt.Sprintf("%s=%s", name, strings.Join(pairs, ":"))
}

func pair(k string, format string, v any) string {
	return k + "=" + fmt.Sprintf(format, v)
}
