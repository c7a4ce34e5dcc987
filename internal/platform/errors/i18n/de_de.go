package i18n

var deDE = map[Code]string{
	CodeTimesheetInvalidMonth:      "Der Monat muss im Format JJJJ-MM angegeben werden.",
	CodeTimesheetInvalidTimezone:   "Unbekannte Zeitzone {{.Timezone}}.",
	CodeProjectMembershipRequired:  "Sie sind kein Mitglied dieses Projekts.",
	CodeProjectSiteLocationMissing: "Für das Projekt ist kein Standort hinterlegt.",
	CodeShiftNotActive:             "Sie haben heute keine aktive Schicht.",
	CodeChallengeInvalidSlot:       "Der Slot muss 1 oder 2 sein.",
	CodeChallengeNotFound:          "Die Anwesenheitsprüfung existiert nicht.",
	CodeChallengeNotOwned:          "Diese Anwesenheitsprüfung gehört jemand anderem.",
	CodeChallengeExpired:           "Die Anwesenheitsprüfung endete um {{.Deadline}}.",
	CodeChallengeOutOfRange:        "Sie sind {{.Distance}} m vom Standort entfernt; erlaubt sind {{.Radius}} m.",
	CodeChallengeAlreadyResponded:  "Diese Anwesenheitsprüfung wurde bereits beantwortet.",
	CodeUnauthenticated:            "Bitte melden Sie sich an.",
	CodeUnknown:                    "Etwas ist schiefgelaufen. Bitte versuchen Sie es erneut.",
}
