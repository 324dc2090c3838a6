package conversation

const functionName = "process_real_estate_query"

// functionParameters is the structured-output contract sent with every
// backend request. The backend is asked to honor the intent enum and the
// required fields.
var functionParameters = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"intent": map[string]interface{}{
			"type": "string",
			"enum": []string{"property_search", "market_analysis", "compliance_question", "crm_action", "general_inquiry"},
		},
		"extracted_entities": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"location": map[string]interface{}{"type": "string"},
				"price_range": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"min": map[string]interface{}{"type": "number"},
						"max": map[string]interface{}{"type": "number"},
					},
				},
				"property_type": map[string]interface{}{"type": "string"},
				"bedrooms":      map[string]interface{}{"type": "number"},
				"bathrooms":     map[string]interface{}{"type": "number"},
				"features": map[string]interface{}{
					"type":  "array",
					"items": map[string]interface{}{"type": "string"},
				},
			},
		},
		"response_text": map[string]interface{}{"type": "string"},
		"anticipatory_actions": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"label":      map[string]interface{}{"type": "string"},
					"action":     map[string]interface{}{"type": "string"},
					"confidence": map[string]interface{}{"type": "number"},
				},
			},
		},
		"follow_up_predictions": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"content":    map[string]interface{}{"type": "string"},
					"confidence": map[string]interface{}{"type": "number"},
					"category":   map[string]interface{}{"type": "string"},
				},
			},
		},
		"confidence": map[string]interface{}{"type": "number"},
	},
	"required": []string{"intent", "response_text", "confidence"},
}

// resultSchema validates the shape of returned arguments. It deliberately
// omits the intent enum and the required list: unknown intents and missing
// fields are coerced during formatting, not rejected here. Only structural
// violations (wrong types) fail validation.
const resultSchema = `{
  "type": "object",
  "properties": {
    "intent": {"type": "string"},
    "extracted_entities": {
      "type": "object",
      "properties": {
        "location": {"type": "string"},
        "price_range": {
          "type": "object",
          "properties": {
            "min": {"type": "number"},
            "max": {"type": "number"}
          }
        },
        "property_type": {"type": "string"},
        "bedrooms": {"type": "number"},
        "bathrooms": {"type": "number"},
        "features": {"type": "array", "items": {"type": "string"}}
      }
    },
    "response_text": {"type": "string"},
    "anticipatory_actions": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "label": {"type": "string"},
          "action": {"type": "string"},
          "confidence": {"type": "number"}
        }
      }
    },
    "follow_up_predictions": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "content": {"type": "string"},
          "confidence": {"type": "number"},
          "category": {"type": "string"}
        }
      }
    },
    "confidence": {"type": "number"}
  }
}`
