package ffmpeg

import (
	"strings"

	"github.com/adcanvas/adapt-agent/internal/plan"
)

// Serialize renders a planned graph into its ffmpeg filter flag and value.
// A single unlabeled chain becomes -vf; anything with stream labels becomes
// -filter_complex.
func Serialize(g *plan.Graph) (flag, value string) {
	if len(g.Chains) == 1 && len(g.Chains[0].Inputs) == 0 && g.Chains[0].Label == "" {
		return "-vf", chainExpr(g.Chains[0])
	}

	exprs := make([]string, len(g.Chains))
	for i, c := range g.Chains {
		exprs[i] = chainExpr(c)
	}
	return "-filter_complex", strings.Join(exprs, ";")
}

func chainExpr(c plan.Chain) string {
	var sb strings.Builder
	for _, in := range c.Inputs {
		sb.WriteString("[")
		sb.WriteString(in)
		sb.WriteString("]")
	}

	stages := make([]string, len(c.Stages))
	for i, s := range c.Stages {
		stages[i] = stageExpr(s)
	}
	sb.WriteString(strings.Join(stages, ","))

	if c.Label != "" {
		sb.WriteString("[")
		sb.WriteString(c.Label)
		sb.WriteString("]")
	}
	return sb.String()
}

func stageExpr(s plan.Stage) string {
	if len(s.Params) == 0 {
		return s.Name
	}
	kvs := make([]string, len(s.Params))
	for i, p := range s.Params {
		kvs[i] = p.Key + "=" + p.Value
	}
	return s.Name + "=" + strings.Join(kvs, ":")
}
