// Package policyopa evaluates the authenticity verdict with an OPA rego policy.
package policyopa

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"assetguard/internal/domain"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"
)

const verdictQuery = "data.assetguard.authenticity.verdict"

//go:embed policy/authenticity.rego
var embedded embed.FS

type Engine struct {
	query      rego.PreparedEvalQuery
	bundleHash string
}

// NewEngine compiles the policy at path, or the embedded default when path is empty.
func NewEngine(ctx context.Context, path string) (*Engine, error) {
	var (
		name   string
		source []byte
		err    error
	)
	if strings.TrimSpace(path) == "" {
		name = "authenticity.rego"
		source, err = embedded.ReadFile("policy/authenticity.rego")
	} else {
		name = path
		source, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}

	capabilities := ast.CapabilitiesForThisVersion()
	capabilities.Builtins = filterBuiltins(capabilities.Builtins)
	compiler := ast.NewCompiler().WithCapabilities(capabilities)

	r := rego.New(
		rego.Query(verdictQuery),
		rego.Compiler(compiler),
		rego.StrictBuiltinErrors(true),
		rego.Module(name, string(source)),
	)
	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile policy: %w", err)
	}
	if err := assertNoForbiddenBuiltins(compiler); err != nil {
		return nil, err
	}
	sum := sha256.Sum256(source)
	return &Engine{query: prepared, bundleHash: hex.EncodeToString(sum[:])}, nil
}

func (e *Engine) BundleHash() string {
	return e.bundleHash
}

func (e *Engine) Evaluate(ctx context.Context, input domain.PolicyInput) (domain.PolicyEvaluation, error) {
	if e == nil {
		return domain.PolicyEvaluation{}, errors.New("policy engine is nil")
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return domain.PolicyEvaluation{}, err
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return domain.PolicyEvaluation{}, errors.New("empty policy result")
	}
	raw, ok := results[0].Expressions[0].Value.(string)
	if !ok {
		return domain.PolicyEvaluation{}, fmt.Errorf("policy verdict must be a string, got %T", results[0].Expressions[0].Value)
	}
	verdict := domain.Verdict(raw)
	switch verdict {
	case domain.VerdictTrusted, domain.VerdictSignatureOnly, domain.VerdictLedgerOnly,
		domain.VerdictRevokedKey, domain.VerdictUntrusted:
	default:
		return domain.PolicyEvaluation{}, fmt.Errorf("policy returned unknown verdict %q", raw)
	}
	return domain.PolicyEvaluation{BundleHash: e.bundleHash, Verdict: verdict}, nil
}

func assertNoForbiddenBuiltins(compiler *ast.Compiler) error {
	if compiler == nil {
		return errors.New("policy compiler is nil")
	}
	forbidden := make(map[string]struct{})
	for _, module := range compiler.Modules {
		ast.WalkTerms(module, func(term *ast.Term) bool {
			call, ok := term.Value.(ast.Call)
			if !ok || len(call) == 0 || call[0] == nil {
				return false
			}
			name := call[0].Value.String()
			if _, ok := ast.BuiltinMap[name]; !ok {
				return false
			}
			if _, ok := allowedBuiltins[name]; ok {
				return false
			}
			forbidden[name] = struct{}{}
			return false
		})
	}
	if len(forbidden) == 0 {
		return nil
	}
	names := make([]string, 0, len(forbidden))
	for name := range forbidden {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Errorf("forbidden builtins: %s", strings.Join(names, ", "))
}
