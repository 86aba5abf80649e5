package ast

import (
	"fmt"
	"strings"
)

// BinaryOperator is the operator of a BoxBinaryOperation.
type BinaryOperator int

const (
	OpPlus BinaryOperator = iota + 1
	OpMinus
	OpStar
	OpSlash
	OpBackslash
	OpPower
	OpXor
	OpMod
	OpEquivalence
	OpImplies
	OpElvis
	OpContains
	OpNotContains
	OpAnd
	OpOr
	OpInstanceOf
	OpCastAs
	OpConcat
	OpBitwiseAnd
	OpBitwiseOr
	OpBitwiseXor
	OpBitwiseSignedLeftShift
	OpBitwiseSignedRightShift
	OpBitwiseUnsignedRightShift
)

var binaryNames = map[BinaryOperator]string{
	OpPlus:                      "Plus",
	OpMinus:                     "Minus",
	OpStar:                      "Star",
	OpSlash:                     "Slash",
	OpBackslash:                 "Backslash",
	OpPower:                     "Power",
	OpXor:                       "Xor",
	OpMod:                       "Mod",
	OpEquivalence:               "Equivalence",
	OpImplies:                   "Implies",
	OpElvis:                     "Elvis",
	OpContains:                  "Contains",
	OpNotContains:               "NotContains",
	OpAnd:                       "And",
	OpOr:                        "Or",
	OpInstanceOf:                "InstanceOf",
	OpCastAs:                    "CastAs",
	OpConcat:                    "Concat",
	OpBitwiseAnd:                "BitwiseAnd",
	OpBitwiseOr:                 "BitwiseOr",
	OpBitwiseXor:                "BitwiseXor",
	OpBitwiseSignedLeftShift:    "BitwiseSignedLeftShift",
	OpBitwiseSignedRightShift:   "BitwiseSignedRightShift",
	OpBitwiseUnsignedRightShift: "BitwiseUnsignedRightShift",
}

func (op BinaryOperator) String() string { return opName(binaryNames, op) }

// ComparisonOperator is the operator of a BoxComparisonOperation.
type ComparisonOperator int

const (
	CmpEqual ComparisonOperator = iota + 1
	CmpNotEqual
	CmpTEqual
	CmpTNotEqual
	CmpGreaterThan
	CmpGreaterThanEquals
	CmpLessThan
	CmpLessThanEquals
)

var comparisonNames = map[ComparisonOperator]string{
	CmpEqual:             "Equal",
	CmpNotEqual:          "NotEqual",
	CmpTEqual:            "TEqual",
	CmpTNotEqual:         "TNotEqual",
	CmpGreaterThan:       "GreaterThan",
	CmpGreaterThanEquals: "GreaterThanEquals",
	CmpLessThan:          "LessThan",
	CmpLessThanEquals:    "LessThanEquals",
}

func (op ComparisonOperator) String() string { return opName(comparisonNames, op) }

// UnaryOperator is the operator of a BoxUnaryOperation.
type UnaryOperator int

const (
	UnaryNot UnaryOperator = iota + 1
	UnaryMinus
	UnaryPlus
	UnaryPrePlusPlus
	UnaryPostPlusPlus
	UnaryPreMinusMinus
	UnaryPostMinusMinus
	UnaryBitwiseComplement
)

var unaryNames = map[UnaryOperator]string{
	UnaryNot:               "Not",
	UnaryMinus:             "Minus",
	UnaryPlus:              "Plus",
	UnaryPrePlusPlus:       "PrePlusPlus",
	UnaryPostPlusPlus:      "PostPlusPlus",
	UnaryPreMinusMinus:     "PreMinusMinus",
	UnaryPostMinusMinus:    "PostMinusMinus",
	UnaryBitwiseComplement: "BitwiseComplement",
}

func (op UnaryOperator) String() string { return opName(unaryNames, op) }

// AssignmentOperator is the operator of a BoxAssignment.
type AssignmentOperator int

const (
	AssignEqual AssignmentOperator = iota + 1
	AssignPlusEqual
	AssignMinusEqual
	AssignStarEqual
	AssignSlashEqual
	AssignModEqual
	AssignConcatEqual
	AssignPowerEqual
	AssignBackslashEqual
)

var assignmentNames = map[AssignmentOperator]string{
	AssignEqual:          "Equal",
	AssignPlusEqual:      "PlusEqual",
	AssignMinusEqual:     "MinusEqual",
	AssignStarEqual:      "StarEqual",
	AssignSlashEqual:     "SlashEqual",
	AssignModEqual:       "ModEqual",
	AssignConcatEqual:    "ConcatEqual",
	AssignPowerEqual:     "PowerEqual",
	AssignBackslashEqual: "BackslashEqual",
}

func (op AssignmentOperator) String() string { return opName(assignmentNames, op) }

func opName[O ~int](names map[O]string, op O) string {
	if n, ok := names[op]; ok {
		return n
	}
	return fmt.Sprintf("Operator(%d)", int(op))
}

// parseOp looks an operator up by name, ignoring case.
func parseOp[O ~int](names map[O]string, name string) (O, bool) {
	for op, n := range names {
		if strings.EqualFold(n, name) {
			return op, true
		}
	}
	return 0, false
}

func ParseBinaryOperator(name string) (BinaryOperator, bool) { return parseOp(binaryNames, name) }
func ParseComparisonOperator(name string) (ComparisonOperator, bool) {
	return parseOp(comparisonNames, name)
}
func ParseUnaryOperator(name string) (UnaryOperator, bool) { return parseOp(unaryNames, name) }
func ParseAssignmentOperator(name string) (AssignmentOperator, bool) {
	return parseOp(assignmentNames, name)
}
