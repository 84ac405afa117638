package adapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// CELRuleEngineAdapter 是 port.RuleEngine 的 cel-go 实现。
// 活动的资格规则是一条 CEL 表达式，对买家和商品求值，
// 例如 "buyer_id % 2 == 0" 或 "product_id != 1001"。
// 编译结果按表达式缓存，发令牌的热路径上只做求值。
type CELRuleEngineAdapter struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

func NewCELRuleEngineAdapter() (*CELRuleEngineAdapter, error) {
	env, err := cel.NewEnv(
		cel.Variable("buyer_id", cel.IntType),
		cel.Variable("product_id", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &CELRuleEngineAdapter{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

func (a *CELRuleEngineAdapter) Evaluate(ctx context.Context, rule string, fact map[string]interface{}) (bool, error) {
	prg, err := a.program(rule)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(fact)
	if err != nil {
		return false, fmt.Errorf("rule evaluation failed: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule did not evaluate to a boolean: %q", rule)
	}
	return result, nil
}

func (a *CELRuleEngineAdapter) program(rule string) (cel.Program, error) {
	a.mu.RLock()
	prg, ok := a.programs[rule]
	a.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, issues := a.env.Compile(rule)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid eligibility rule %q: %w", rule, issues.Err())
	}
	prg, err := a.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build rule program: %w", err)
	}

	a.mu.Lock()
	a.programs[rule] = prg
	a.mu.Unlock()
	return prg, nil
}
