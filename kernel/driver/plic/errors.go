package plic

import "rvkernel/kernel"

var (
	ErrInvalidInterruptID    = &kernel.Error{Module: "plic", Message: "interrupt id is zero or out of range"}
	ErrInvalidThresholdValue = &kernel.Error{Module: "plic", Message: "threshold value must be between 0 and 7"}
	ErrInvalidPriorityValue  = &kernel.Error{Module: "plic", Message: "priority value must be between 0 and 7"}
)
