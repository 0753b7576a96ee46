package bootstrapper

const TraceIndexName = "weft_traces"

// traceIndex maps one document per closed session: identity, timing bounds,
// and the analytics results.
var traceIndex = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"session_id": map[string]interface{}{
				"type": "keyword",
			},
			"emission_id": map[string]interface{}{
				"type": "keyword",
			},
			"complete": map[string]interface{}{
				"type": "boolean",
			},
			"close_epoch": map[string]interface{}{
				"type": "long",
			},
			"earliest_timestamp": map[string]interface{}{
				"type": "long",
			},
			"latest_timestamp": map[string]interface{}{
				"type": "long",
			},
			"message_count": map[string]interface{}{
				"type": "integer",
			},
			"span_count": map[string]interface{}{
				"type": "integer",
			},
			"root_count": map[string]interface{}{
				"type": "integer",
			},
			"duration": map[string]interface{}{
				"type": "long",
			},
			"depth": map[string]interface{}{
				"type": "integer",
			},
			"tree_shape": map[string]interface{}{
				"type": "integer",
			},
			"service_dependencies": map[string]interface{}{
				"type": "nested",
				"properties": map[string]interface{}{
					"parent": map[string]interface{}{
						"type": "keyword",
					},
					"child": map[string]interface{}{
						"type": "keyword",
					},
				},
			},
		},
	},
}
