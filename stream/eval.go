package stream

import (
	"fmt"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/expr"
	"github.com/kbukum/streamkit/logger"
)

// evaluate runs eval on one element. A panic inside user code is reported
// like any other evaluation error.
func evaluate(desc string, eval expr.Eval, in Pair) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Evaluation(desc, fmt.Errorf("panic: %v", r))
		}
	}()
	return eval(in.Value, in.Attach)
}

// evaluateOrNil is evaluate for stages where a failing element becomes nil.
func evaluateOrNil(log *logger.Logger, desc string, eval expr.Eval, in Pair) any {
	v, err := evaluate(desc, eval, in)
	if err != nil {
		log.Debug("element evaluation failed", logger.Fields(
			logger.FieldExpression, desc,
			logger.FieldError, err.Error(),
		))
		return nil
	}
	return v
}
