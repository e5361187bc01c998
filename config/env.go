package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// lookupFunc resolves one variable; os.LookupEnv in production.
type lookupFunc func(string) (string, bool)

var durationType = reflect.TypeOf(time.Duration(0))

// loadFromEnv overlays ACHIEVEKIT_* variables onto cfg.
func loadFromEnv(cfg *Config) error {
	return loadFromLookup(cfg, os.LookupEnv)
}

// loadFromLookup walks cfg and applies every env-tagged field that lookup
// reports as set and non-empty. Nested structs are visited recursively so the
// adapter config types can carry their own tags.
func loadFromLookup(cfg any, lookup lookupFunc) error {
	val := reflect.ValueOf(cfg)
	if val.Kind() != reflect.Ptr || val.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("expected pointer to struct, got %T", cfg)
	}
	return applyEnv(val.Elem(), lookup)
}

func applyEnv(st reflect.Value, lookup lookupFunc) error {
	typ := st.Type()
	for i := 0; i < st.NumField(); i++ {
		field, meta := st.Field(i), typ.Field(i)
		if !meta.IsExported() {
			continue
		}
		if field.Kind() == reflect.Struct {
			if err := applyEnv(field, lookup); err != nil {
				return err
			}
			continue
		}

		name := meta.Tag.Get("env")
		if name == "" {
			continue
		}
		raw, ok := lookup(name)
		if !ok || raw == "" {
			continue
		}
		if err := decodeEnv(field, raw); err != nil {
			return fmt.Errorf("failed to set field %s from env var %s: %w", meta.Name, name, err)
		}
	}
	return nil
}

// decodeEnv parses raw into field according to the field's type.
// Slices are comma separated; maps use key=value pairs separated by commas.
func decodeEnv(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration value: %s", raw)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid boolean value: %s", raw)
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer value: %s", raw)
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid unsigned integer value: %s", raw)
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid float value: %s", raw)
		}
		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		parts := splitList(raw)
		out := reflect.MakeSlice(field.Type(), len(parts), len(parts))
		for i, p := range parts {
			out.Index(i).SetString(p)
		}
		field.Set(out)
	case reflect.Map:
		if field.Type().Key().Kind() != reflect.String || field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported map type: %s", field.Type())
		}
		out := reflect.MakeMapWithSize(field.Type(), 0)
		for _, pair := range strings.Split(raw, ",") {
			k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok {
				return fmt.Errorf("invalid map entry format: %s", pair)
			}
			out.SetMapIndex(reflect.ValueOf(k).Convert(field.Type().Key()), reflect.ValueOf(v).Convert(field.Type().Elem()))
		}
		field.Set(out)
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}
