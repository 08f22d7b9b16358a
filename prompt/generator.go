// Package prompt derives output-format instructions from Go types. A
// workflow node that wants an LLM response parseable into a struct T
// appends GenerateStructuredPrompt[T]() to its prompt; the generated
// text shows the model a skeleton of T plus a description of every
// field, taken from struct tags.
package prompt

import (
	"fmt"
	"reflect"
	"strings"
)

// GenerateStructuredPrompt renders format instructions for type T.
// Structs with yaml tags anywhere in their field tree get a YAML
// skeleton, everything else a JSON one. Field descriptions come from
// the description tag.
func GenerateStructuredPrompt[T any]() string {
	t := targetType[T]()
	if t.Kind() != reflect.Struct {
		return fmt.Sprintf("Return a single %s value as the answer.", t.Name())
	}

	var b strings.Builder
	b.WriteString("Return the extracted information in the structured format below.\n\n")

	if usesYAML(t) {
		b.WriteString("Format the output as YAML matching this structure:\n\n```yaml\n")
		yamlSkeleton(&b, t, 0)
		b.WriteString("```\n\n")
	} else {
		b.WriteString("Format the output as JSON matching this structure:\n\n```json\n")
		jsonSkeleton(&b, t, 0)
		b.WriteString("\n```\n\n")
	}

	b.WriteString("Field descriptions:\n")
	describeFields(&b, t, "")
	b.WriteString("\nFill every field from the input data. When the input does not determine a field, leave it empty or use a sensible zero value.")
	return b.String()
}

// ValidateStructForPrompt checks that T can produce a usable skeleton:
// it must be a struct (possibly behind a pointer) and no yaml tag may
// name a field with embedded spaces.
func ValidateStructForPrompt[T any]() error {
	t := targetType[T]()
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("type %s is not a struct", t.String())
	}
	return checkFields(t, "")
}

// targetType resolves the concrete type of T, stripping one level of
// pointer so *T and T produce the same prompt
func targetType[T any]() reflect.Type {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

func deref(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Ptr {
		return t.Elem()
	}
	return t
}

// usesYAML reports whether any field in the type tree carries a yaml tag
func usesYAML(t reflect.Type) bool {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if _, ok := field.Tag.Lookup("yaml"); ok {
			return true
		}
		if nested := deref(field.Type); nested.Kind() == reflect.Struct && usesYAML(nested) {
			return true
		}
	}
	return false
}

func yamlSkeleton(b *strings.Builder, t reflect.Type, depth int) {
	pad := strings.Repeat("  ", depth)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := yamlName(field)
		if name == "-" {
			continue
		}

		ft := deref(field.Type)
		switch ft.Kind() {
		case reflect.Struct:
			fmt.Fprintf(b, "%s%s:\n", pad, name)
			yamlSkeleton(b, ft, depth+1)
		case reflect.Slice, reflect.Array:
			elem := deref(ft.Elem())
			if elem.Kind() == reflect.Struct {
				fmt.Fprintf(b, "%s%s:\n%s  -\n", pad, name, pad)
				yamlSkeleton(b, elem, depth+2)
			} else {
				fmt.Fprintf(b, "%s%s: [] # list of %s\n", pad, name, elem.Kind())
			}
		default:
			fmt.Fprintf(b, "%s%s: %s\n", pad, name, yamlPlaceholder(ft.Kind()))
		}
	}
}

func yamlPlaceholder(k reflect.Kind) string {
	switch k {
	case reflect.String:
		return `"" # string`
	case reflect.Bool:
		return "false # boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "0 # number"
	default:
		return `"" # ` + k.String()
	}
}

func jsonSkeleton(b *strings.Builder, t reflect.Type, depth int) {
	pad := strings.Repeat("  ", depth)
	b.WriteString("{\n")
	first := true
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := jsonName(field)
		if name == "-" {
			continue
		}
		if !first {
			b.WriteString(",\n")
		}
		first = false
		fmt.Fprintf(b, "%s  %q: ", pad, name)

		ft := deref(field.Type)
		switch ft.Kind() {
		case reflect.Struct:
			jsonSkeleton(b, ft, depth+1)
		case reflect.Slice, reflect.Array:
			elem := deref(ft.Elem())
			if elem.Kind() == reflect.Struct {
				b.WriteString("[")
				jsonSkeleton(b, elem, depth+1)
				b.WriteString("]")
			} else {
				b.WriteString("[]")
			}
		default:
			b.WriteString(jsonZero(ft.Kind()))
		}
	}
	fmt.Fprintf(b, "\n%s}", pad)
}

func jsonZero(k reflect.Kind) string {
	switch k {
	case reflect.String:
		return `""`
	case reflect.Bool:
		return "false"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "0"
	case reflect.Float32, reflect.Float64:
		return "0.0"
	default:
		return "null"
	}
}

// describeFields writes one "- path: description" line per field,
// recursing into nested structs and slices of structs
func describeFields(b *strings.Builder, t reflect.Type, path string) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := displayName(field)
		if name == "-" {
			continue
		}
		full := name
		if path != "" {
			full = path + "." + name
		}

		description := field.Tag.Get("description")
		if description == "" {
			description = "Value of type " + field.Type.String()
		}
		fmt.Fprintf(b, "- %s: %s\n", full, description)

		ft := deref(field.Type)
		switch ft.Kind() {
		case reflect.Struct:
			describeFields(b, ft, full)
		case reflect.Slice, reflect.Array:
			if elem := deref(ft.Elem()); elem.Kind() == reflect.Struct {
				describeFields(b, elem, full+"[]")
			}
		}
	}
}

// displayName prefers the yaml tag, then json, then the Go field name
func displayName(field reflect.StructField) string {
	if name := tagName(field.Tag.Get("yaml")); name != "" {
		return name
	}
	if name := tagName(field.Tag.Get("json")); name != "" {
		return name
	}
	return field.Name
}

func yamlName(field reflect.StructField) string {
	if name := tagName(field.Tag.Get("yaml")); name != "" {
		return name
	}
	return strings.ToLower(field.Name)
}

func jsonName(field reflect.StructField) string {
	if name := tagName(field.Tag.Get("json")); name != "" {
		return name
	}
	return field.Name
}

// tagName extracts the name part of a tag, dropping options like omitempty
func tagName(tag string) string {
	if tag == "" {
		return ""
	}
	return strings.Split(tag, ",")[0]
}

func checkFields(t reflect.Type, path string) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		full := field.Name
		if path != "" {
			full = path + "." + field.Name
		}

		if name := tagName(field.Tag.Get("yaml")); strings.Contains(name, " ") {
			return fmt.Errorf("field %s: yaml name %q contains a space", full, name)
		}

		ft := deref(field.Type)
		switch ft.Kind() {
		case reflect.Struct:
			if err := checkFields(ft, full); err != nil {
				return err
			}
		case reflect.Slice, reflect.Array:
			if elem := deref(ft.Elem()); elem.Kind() == reflect.Struct {
				if err := checkFields(elem, full+"[]"); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
