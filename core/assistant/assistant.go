package assistant

import "strings"

type (
	Reply struct {
		Topic  string `json:"topic"`
		Answer string `json:"answer"`
	}

	topic struct {
		name     string
		keywords []string
		answer   string
	}
)

const greeting = "Assalamu Alaikum! Ask me about admission, fees, class timing, the hifz department, " +
	"or how to reach us."

var topics = []topic{
	{
		name:     "admission",
		keywords: []string{"admission", "admit", "enrol", "enroll", "apply", "ভর্তি"},
		answer: "Admission is open for the general and nurani departments. Fill in the admission form on the " +
			"website; the office will call the guardian after reviewing it.",
	},
	{
		name:     "fees",
		keywords: []string{"fee", "fees", "cost", "salary", "payment", "বেতন"},
		answer:   "Monthly fees depend on the class. Please contact the office for the current fee chart.",
	},
	{
		name:     "timing",
		keywords: []string{"time", "timing", "schedule", "hour", "open", "সময়"},
		answer:   "Classes run from 7:00 AM to 1:00 PM, Saturday to Thursday. Friday is the weekly holiday.",
	},
	{
		name:     "hifz",
		keywords: []string{"hifz", "hafez", "hafiz", "quran", "হিফজ"},
		answer: "The hifz department offers full Quran memorization with residential and day options under " +
			"experienced huffaz.",
	},
	{
		name:     "contact",
		keywords: []string{"contact", "phone", "call", "email", "mobile", "যোগাযোগ"},
		answer:   "You can reach the office through the contact form on this website or by phone during office hours.",
	},
	{
		name:     "location",
		keywords: []string{"location", "address", "where", "map", "ঠিকানা"},
		answer:   "The madrasa address and map are on the contact page.",
	},
}

// Answer replies to message from the fixed topic table, falling back to a greeting.
func Answer(message string) Reply {
	msg := strings.ToLower(message)
	for _, t := range topics {
		for _, kw := range t.keywords {
			if strings.Contains(msg, kw) {
				return Reply{Topic: t.name, Answer: t.answer}
			}
		}
	}
	return Reply{Topic: "greeting", Answer: greeting}
}
