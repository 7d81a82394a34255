package reputation

// Cheers — основной вариант: причина в ответе, учёт выданных, еженедельный пост.
// Имена файлов совпадают со старыми файлами бота.
func Cheers() Variant {
	return Variant{
		Name:          "cheers",
		Keyword:       "!cheers",
		Unit:          "cheers",
		BadgeToken:    ":1DFV1:",
		LedgerFile:    "cheers_data.json",
		GivenFile:     "cheers_awarded_data.json",
		CooldownFile:  "rate_limit.json",
		ProcessedFile: "cheers_processed.json",
		WeeklyFile:    "last_weekly_post.txt",
		ReasonEnabled: true,
		TrackGiven:    true,
		WeeklyPost:    true,
	}
}

// Kudos — упрощённый вариант: только u/имя, без причины и учёта выданных.
func Kudos() Variant {
	return Variant{
		Name:                "kudos",
		Keyword:             "!kudos",
		Unit:                "kudos",
		BadgeToken:          "🎖",
		LedgerFile:          "kudos_data.json",
		CooldownFile:        "kudos_rate_limit.json",
		ProcessedFile:       "kudos_processed.json",
		RequireHandlePrefix: true,
	}
}
