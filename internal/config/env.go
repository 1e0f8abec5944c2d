package config

import (
	"reflect"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable, e.g. PAGEOCR_OCR_API_KEY.
const EnvPrefix = "PAGEOCR"

// EnvKeys returns the dotted key of every scalar setting in Config.
// Maps and lists are left out; they only come from the config file
// (search.addresses also reads a comma-separated PAGEOCR_SEARCH_ADDRESSES).
func EnvKeys() []string {
	return collectKeys(reflect.TypeOf(Config{}), "")
}

func collectKeys(t reflect.Type, prefix string) []string {
	var keys []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		switch f.Type.Kind() {
		case reflect.Struct:
			keys = append(keys, collectKeys(f.Type, key)...)
		case reflect.Map, reflect.Slice:
		default:
			keys = append(keys, key)
		}
	}
	return keys
}

// BindEnv makes every setting overridable from the environment:
// ocr.api_key -> PAGEOCR_OCR_API_KEY. MISTRAL_API_KEY also sets ocr.api_key.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range EnvKeys() {
		v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}
	v.BindEnv("ocr.api_key", EnvPrefix+"_OCR_API_KEY", "MISTRAL_API_KEY")
}
