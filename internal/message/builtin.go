package message

// BuiltinRules returns the default rules for a source whose message text lives
// in messageFields. A leveled rule comes first so "[ERROR] boom" renders with
// its level when log.level is present.
func BuiltinRules(messageFields []string) []Rule {
	var rules []Rule

	if len(messageFields) > 0 {
		primary := messageFields[0]
		rules = append(rules, Rule{
			When: Condition{Exists: []string{"log.level", primary}},
			Format: []Pattern{
				{Constant: "["},
				{Field: "log.level"},
				{Constant: "] "},
				{Field: primary},
			},
		})
	}

	for _, f := range messageFields {
		rules = append(rules, Rule{
			When:   Condition{Exists: []string{f}},
			Format: []Pattern{{Field: f}},
		})
	}

	return rules
}
