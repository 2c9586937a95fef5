package analysis

// Response schemas declared to the model and enforced on its output.
// Rating bounds live in the schema so an out-of-range rating is a contract
// violation, not something to clamp silently.

const textSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["text"],
  "properties": {
    "text": { "type": "string", "minLength": 1 }
  }
}`

const recommendationsSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["recommendations"],
  "properties": {
    "recommendations": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["title", "text"],
        "properties": {
          "title": { "type": "string" },
          "text": { "type": "string" }
        }
      }
    }
  }
}`

const teamRatingsSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["ratings"],
  "properties": {
    "ratings": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["employee_id", "rating", "rating_explanation"],
        "properties": {
          "employee_id": { "type": "integer" },
          "rating": { "type": "integer", "minimum": 1, "maximum": 5 },
          "rating_explanation": { "type": "string" }
        }
      }
    }
  }
}`
