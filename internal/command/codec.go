// internal/command/codec.go

// Package command implements the compact postback token protocol embedded in
// button and list identifiers. Tokens round-trip cart edit intent through the
// UI without any server-side session lookup.
package command

import (
	"fmt"
	"strconv"
	"strings"
)

// Action enumerates the edit operations a token can carry.
type Action string

const (
	ActionVarChoose Action = "VAR_CHOOSE"
	ActionEditPick  Action = "EDIT_PICK"
	ActionDec       Action = "DEC"
	ActionInc       Action = "INC"
	ActionRemove    Action = "RM"
	ActionVariant   Action = "VAR"
	ActionNote      Action = "NOTE"
	ActionBack      Action = "BACK"
)

const prefix = "CART"

var validActions = map[Action]bool{
	ActionVarChoose: true,
	ActionEditPick:  true,
	ActionDec:       true,
	ActionInc:       true,
	ActionRemove:    true,
	ActionVariant:   true,
	ActionNote:      true,
	ActionBack:      true,
}

// Command is a decoded postback token.
type Command struct {
	Action    Action
	ItemID    int
	VariantID int
	Arg       int
}

// Encode builds the 5-field pipe-delimited token. Pure and deterministic;
// absent numeric fields encode as 0. Notes travel via conversation state,
// not the token, so Arg is always numeric.
func Encode(action Action, itemID, variantID, arg int) string {
	return fmt.Sprintf("%s|%s|%d|%d|%d", prefix, action, itemID, variantID, arg)
}

// Decode parses a token. Decode is total: malformed input yields ok=false and
// a zero Command, never an error the caller has to handle. Fails closed on
// wrong field count, wrong prefix, unknown action, or non-numeric fields.
func Decode(token string) (Command, bool) {
	parts := strings.SplitN(strings.TrimSpace(token), "|", 5)
	if len(parts) != 5 {
		return Command{}, false
	}
	if parts[0] != prefix {
		return Command{}, false
	}

	action := Action(parts[1])
	if !validActions[action] {
		return Command{}, false
	}

	itemID, err := strconv.Atoi(parts[2])
	if err != nil {
		return Command{}, false
	}
	variantID, err := strconv.Atoi(parts[3])
	if err != nil {
		return Command{}, false
	}
	arg, err := strconv.Atoi(parts[4])
	if err != nil {
		return Command{}, false
	}

	return Command{
		Action:    action,
		ItemID:    itemID,
		VariantID: variantID,
		Arg:       arg,
	}, true
}

// IsToken reports whether s looks like an encoded command, cheap check used
// by the router before attempting a full decode.
func IsToken(s string) bool {
	return strings.HasPrefix(s, prefix+"|")
}
