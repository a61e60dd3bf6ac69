package platform

// payload is a map argument or result decoded from native code. Lookups of
// missing or mistyped keys return zero values.
type payload map[string]any

// asPayload returns value as a payload, or nil when it is not a map.
func asPayload(value any) payload {
	switch m := value.(type) {
	case map[string]any:
		return m
	case map[any]any:
		p := make(payload, len(m))
		for k, v := range m {
			if ks, ok := k.(string); ok {
				p[ks] = v
			}
		}
		return p
	default:
		return nil
	}
}

func (p payload) text(key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func (p payload) flag(key string) bool {
	switch v := p[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}
