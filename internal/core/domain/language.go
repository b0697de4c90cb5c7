package domain

import "unicode"

type Language string

const (
	LangEnglish Language = "en"
	LangChinese Language = "zh"
)

// DetectLanguage reports Chinese when the text contains any Han rune,
// English otherwise. Only used to select the response locale; downstream
// matching never branches on it.
func DetectLanguage(text string) Language {
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			return LangChinese
		}
	}
	return LangEnglish
}

// Fixed localized replies for the terminal branches that skip generation.
var (
	scopeReminderMessages = map[Language]string{
		LangEnglish: "I'm sorry, I can't help with that. I specialize in fashion outfit recommendations - please ask a question related to clothing and style.",
		LangChinese: "抱歉，我无法帮助您解决这个问题。我的专业是时尚穿搭推荐，请提问与时尚穿搭相关的问题。",
	}
	noProductsMessages = map[Language]string{
		LangEnglish: "Sorry, I couldn't find any products matching your request. Please try a more specific query.",
		LangChinese: "抱歉，我没有找到相关的产品信息。请尝试更具体的查询。",
	}
	generationApologyMessages = map[Language]string{
		LangEnglish: "Sorry, something went wrong while generating your recommendation: ",
		LangChinese: "抱歉，生成推荐时出现错误: ",
	}
)

func ScopeReminderMessage(lang Language) string {
	if msg, ok := scopeReminderMessages[lang]; ok {
		return msg
	}
	return scopeReminderMessages[LangEnglish]
}

func NoProductsMessage(lang Language) string {
	if msg, ok := noProductsMessages[lang]; ok {
		return msg
	}
	return noProductsMessages[LangEnglish]
}

func GenerationApology(lang Language, detail string) string {
	prefix, ok := generationApologyMessages[lang]
	if !ok {
		prefix = generationApologyMessages[LangEnglish]
	}
	return prefix + detail
}
