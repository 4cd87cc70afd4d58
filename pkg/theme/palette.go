package theme

var (
	lightStyles = Styles{
		Background:          mustHex("#ffffff"),
		BackgroundNoOpacity: mustHex("#ffffff").WithAlpha(0),
		Foreground:          mustHex("#171717"),
		ForegroundSecondary: mustHex("#e5e5e5"),
		ForegroundTertiary:  mustHex("#d4d4d4"),
		TextTertiary:        mustHex("#737373"),
		Accents: map[Accent]Color{
			AccentBlue:   mustHex("#2563eb"),
			AccentGreen:  mustHex("#16a34a"),
			AccentIndigo: mustHex("#4f46e5"),
			AccentOrange: mustHex("#ea580c"),
			AccentPink:   mustHex("#db2777"),
			AccentPurple: mustHex("#9333ea"),
			AccentRed:    mustHex("#dc2626"),
			AccentTeal:   mustHex("#0d9488"),
			AccentYellow: mustHex("#ca8a04"),
		},
	}

	darkStyles = Styles{
		Background:          mustHex("#141414"),
		BackgroundNoOpacity: mustHex("#141414").WithAlpha(0),
		Foreground:          mustHex("#f5f5f5"),
		ForegroundSecondary: mustHex("#404040"),
		ForegroundTertiary:  mustHex("#262626"),
		TextTertiary:        mustHex("#a3a3a3"),
		Accents: map[Accent]Color{
			AccentBlue:   mustHex("#3b82f6"),
			AccentGreen:  mustHex("#22c55e"),
			AccentIndigo: mustHex("#6366f1"),
			AccentOrange: mustHex("#f97316"),
			AccentPink:   mustHex("#ec4899"),
			AccentPurple: mustHex("#a855f7"),
			AccentRed:    mustHex("#ef4444"),
			AccentTeal:   mustHex("#14b8a6"),
			AccentYellow: mustHex("#eab308"),
		},
	}
)
