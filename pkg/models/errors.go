package models

import "errors"

var (
	ErrNotConditionNode  = errors.New("not a conditional node")
	ErrNotTimeNode       = errors.New("not a time interval node")
	ErrNotLogicGateNode  = errors.New("not a logic gate node")
	ErrMissingValue      = errors.New("missing or invalid 'value'")
	ErrMissingTargetTime = errors.New("missing 'target_time'")
	ErrInvalidOperator   = errors.New("invalid operator")
)
