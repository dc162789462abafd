package classifier

import "github.com/example/slotwatch/internal/config"

// PhraseSet holds the textual indicators the rule table matches against.
// The monitored portals mix Persian (dominant) with English leakage, so both
// dictionaries ship by default; operators extend them through configuration
// instead of code changes.
type PhraseSet struct {
	CapacityFull  []string
	Open          []string
	Pending       []string
	WindowElapsed []string
	DomainKeyword []string
}

// DefaultPhraseSet returns the built-in Persian + English dictionaries.
func DefaultPhraseSet() PhraseSet {
	return PhraseSet{
		CapacityFull: []string{
			"ظرفیت تکمیل",
			"تکمیل ظرفیت",
			"ظرفیت پر",
			"capacity completed",
			"capacity full",
			"fully booked",
			"no capacity",
		},
		Open: []string{
			"ثبت نام آزاد",
			"ثبت‌نام آزاد",
			"قابل ثبت نام",
			"open for registration",
			"registration open",
			"register now",
		},
		Pending: []string{
			"در انتظار تایید",
			"در انتظار تأیید",
			"awaiting confirmation",
			"pending confirmation",
		},
		WindowElapsed: []string{
			"مهلت ثبت نام به پایان رسید",
			"مهلت ثبت‌نام گذشته",
			"registration window elapsed",
			"registration closed",
			"deadline passed",
		},
		DomainKeyword: []string{
			"آزمون",
			"نوبت",
			"ثبت نام",
			"ثبت‌نام",
			"exam",
			"appointment",
			"slot",
			"session",
		},
	}
}

// PhraseSetFromConfig merges configured extra phrases into the defaults.
func PhraseSetFromConfig(cfg config.ClassifierConfig) PhraseSet {
	ps := DefaultPhraseSet()
	ps.CapacityFull = append(ps.CapacityFull, cfg.ExtraCapacityFullPhrases...)
	ps.Open = append(ps.Open, cfg.ExtraOpenPhrases...)
	ps.Pending = append(ps.Pending, cfg.ExtraPendingPhrases...)
	ps.WindowElapsed = append(ps.WindowElapsed, cfg.ExtraWindowElapsedPhrases...)
	ps.DomainKeyword = append(ps.DomainKeyword, cfg.ExtraDomainKeywords...)
	return ps
}
