package code

import (
	"errors"
	"sync/atomic"
)

// lang stores English and Chinese text of a code
// lang 存储错误码的英文和中文文本
type lang struct {
	en    string // English // 英文
	zh_cn string // Chinese // 中文
}

const (
	LangEN = "en"
	LangZH = "zh_cn"
)

// 当前语言，默认英文；包级变量先于 init 初始化，这里必须在声明处赋值
var lng = func() (v atomic.Value) {
	v.Store(LangEN)
	return
}()

// GetMessage returns the message in the current language, falling back to English
// GetMessage 返回当前语言的消息，缺失时回退到英文
func (l lang) GetMessage() string {
	if lng.Load().(string) == LangZH && l.zh_cn != "" {
		return l.zh_cn
	}
	return l.en
}

// SetGlobalDefaultLang sets the language used by GetMessage
// SetGlobalDefaultLang 设置全局默认语言
func SetGlobalDefaultLang(language string) error {
	switch language {
	case LangEN, LangZH:
		lng.Store(language)
		return nil
	}
	lng.Store(LangEN)
	return errors.New("unsupported language type, set defaulting to " + LangEN)
}

// GetGlobalDefaultLang 获取全局默认语言
func GetGlobalDefaultLang() string {
	return lng.Load().(string)
}
