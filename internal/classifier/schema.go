// internal/classifier/schema.go
package classifier

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// intentSchema is the contract the model output must satisfy before anything
// downstream trusts it. Required fields are validated here so the router
// never has to defend against a missing action or clarifications list.
const intentSchema = `{
	"type": "object",
	"properties": {
		"action": {
			"type": "string",
			"enum": ["ADD_TO_CART", "SHOW_MENU", "ASK_QUESTION", "CHECKOUT", "ORDER_STATUS", "VIEW_CART", "CLEAR_CART", "SMALL_TALK", "EDIT_SET_QTY", "EDIT_REMOVE", "EDIT_CHANGE_VARIANT", "EDIT_SET_NOTE"]
		},
		"items": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"item_id": {"type": ["string", "null"]},
					"item_name": {"type": ["string", "null"]},
					"qty": {"type": "integer", "minimum": 0},
					"options": {"type": ["object", "null"]}
				}
			}
		},
		"target_item_name": {"type": ["string", "null"]},
		"target_item_id": {"type": ["string", "null"]},
		"target_variant_name": {"type": ["string", "null"]},
		"target_variant_id": {"type": ["string", "null"]},
		"new_qty": {"type": ["integer", "null"], "minimum": 0},
		"new_variant_name": {"type": ["string", "null"]},
		"new_variant_id": {"type": ["string", "null"]},
		"note_text": {"type": ["string", "null"]},
		"budget_kes": {"type": ["number", "null"]},
		"dietary": {"type": "array", "items": {"type": "string"}},
		"spice_level": {"type": ["string", "null"]},
		"fulfillment": {"type": ["string", "null"], "enum": ["pickup", "delivery", null]},
		"delivery_address": {"type": ["string", "null"]},
		"order_code": {"type": ["string", "null"]},
		"clarifications": {"type": "array", "items": {"type": "string"}},
		"response_text": {"type": ["string", "null"]}
	},
	"required": ["action", "items", "clarifications"]
}`

var schemaLoader = gojsonschema.NewStringLoader(intentSchema)

func validateIntentJSON(raw []byte) error {
	documentLoader := gojsonschema.NewBytesLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("intent validation failed: %v", errs)
	}

	return nil
}
