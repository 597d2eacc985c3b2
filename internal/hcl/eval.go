package hcl

import (
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/qr3d/internal/encoder"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// newEvalContext exposes the environment as env.NAME and a small function
// library to job file expressions.
func newEvalContext(environ []string) *hcl.EvalContext {
	env := make(map[string]cty.Value, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = cty.StringVal(v)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(env),
		},
		Functions: map[string]function.Function{
			"upper":      stdlib.UpperFunc,
			"lower":      stdlib.LowerFunc,
			"trimspace":  stdlib.TrimSpaceFunc,
			"format":     stdlib.FormatFunc,
			"min":        stdlib.MinFunc,
			"max":        stdlib.MaxFunc,
			"review_url": reviewURLFunc,
		},
	}
}

// reviewURLFunc builds a review link from a place id, failing on ids that
// do not look like one.
var reviewURLFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "place_id", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		u, err := encoder.ReviewURL(args[0].AsString())
		if err != nil {
			return cty.NilVal, err
		}
		return cty.StringVal(u), nil
	},
})
