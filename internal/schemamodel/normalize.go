package schemamodel

// Normalization of the catalog's single-character codes. The
// introspector hands these raw codes to the builder; normalization lives
// here, not in the introspector, so anything constructing a Database by
// hand (tests, the engine's in-memory fixtures) gets the same mapping.

func NormalizeTableKind(relkind string) TableKind {
	switch relkind {
	case "r":
		return KindTable
	case "p":
		return KindPartitioned
	case "v":
		return KindView
	case "m":
		return KindMaterialized
	case "f":
		return KindForeign
	default:
		return KindOther
	}
}

func NormalizeFKAction(code string) FKAction {
	switch code {
	case "a":
		return ActionNoAction
	case "r":
		return ActionRestrict
	case "c":
		return ActionCascade
	case "n":
		return ActionSetNull
	case "d":
		return ActionSetDefault
	default:
		return ActionNoAction
	}
}

func NormalizeIdentity(code string) Identity {
	switch code {
	case "a":
		return IdentityAlways
	case "d":
		return IdentityByDefault
	default:
		return IdentityNone
	}
}

func NormalizeMatchType(code string) MatchType {
	switch code {
	case "f":
		return MatchFull
	case "p":
		return MatchPartial
	default:
		return MatchSimple
	}
}
