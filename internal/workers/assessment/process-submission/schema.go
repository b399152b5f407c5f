package processsubmission

import "assessment-pipeline/internal/common/validation"

const stage1SchemaJSON = `{
  "type": "object",
  "required": ["organizationName", "staffCount", "contactName", "contactEmail", "answers"],
  "properties": {
    "organizationName": {"type": "string", "minLength": 1, "maxLength": 200},
    "staffCount": {"type": "integer", "minimum": 1},
    "contactName": {"type": "string", "minLength": 1, "maxLength": 200},
    "contactEmail": {"type": "string", "minLength": 3, "maxLength": 254},
    "contactPhone": {"type": "string", "maxLength": 40},
    "answers": {
      "type": "object",
      "minProperties": 1,
      "patternProperties": {
        "^[0-9]+$": {"type": "string", "enum": ["A", "B", "C"]}
      },
      "additionalProperties": false
    }
  }
}`

var stage1Schema = validation.MustCompileSchema(stage1SchemaJSON)
