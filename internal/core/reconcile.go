package core

// DefaultOutputMap builds the stock output layout for rule: an optional
// serial number, then the index alias, then the value alias.
func DefaultOutputMap(rule Rule) OutputMap {
	m := OutputMap{}
	if rule.EnableSerialNumber {
		m = m.Set(KeySerialNumber, KeySerialNumber)
	}
	m = m.Set(KeyIndexAlias, rule.IndexName())
	m = m.Set(KeyValueAlias, rule.ValueName())
	return m
}

// ReconcileOutputMap brings m in line with the rule's current toggles and
// aliases. It must run whenever either side changes; a saved map may
// predate the current serial-number toggle.
//
// An empty map becomes DefaultOutputMap. Otherwise the serial entry is
// prepended or removed to match EnableSerialNumber, and the index and value
// alias entries are set to the current aliases. Other entries keep their
// positions.
func ReconcileOutputMap(m OutputMap, rule Rule) OutputMap {
	if len(m) == 0 {
		return DefaultOutputMap(rule)
	}

	out := m.Clone()
	hasSerial := out.Index(KeySerialNumber) >= 0
	switch {
	case rule.EnableSerialNumber && !hasSerial:
		out = append(OutputMap{{Role: RoleSerialNumber, Name: KeySerialNumber}}, out...)
	case !rule.EnableSerialNumber && hasSerial:
		out = out.Delete(KeySerialNumber)
	}

	out = out.Set(KeyIndexAlias, rule.IndexName())
	out = out.Set(KeyValueAlias, rule.ValueName())
	return out
}
