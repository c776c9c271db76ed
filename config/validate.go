package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsValidator "github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema.json
var schemaJSON []byte

var defaultPrinter = message.NewPrinter(language.English)

var (
	compileOnce     sync.Once
	configValidator *jsValidator.Schema
	compileErr      error
)

func compiledSchema() (*jsValidator.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsValidator.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("failed to parse config schema: %w", err)
			return
		}

		c := jsValidator.NewCompiler()
		if err := c.AddResource("config.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("failed to load config schema: %w", err)
			return
		}
		configValidator, compileErr = c.Compile("config.schema.json")
	})
	return configValidator, compileErr
}

func validate(canonical []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}

	inst, err := jsValidator.UnmarshalJSON(bytes.NewReader(canonical))
	if err != nil {
		return ErrInvalidConfig.Wrap(err)
	}

	err = schema.Validate(inst)
	if err == nil {
		return nil
	}

	var validationErr *jsValidator.ValidationError
	if !errors.As(err, &validationErr) {
		return ErrInvalidConfig.Wrap(err)
	}
	return ErrInvalidConfig.Wrap(errors.Join(rootCauses(validationErr)...))
}

func rootCauses(err *jsValidator.ValidationError) []error {
	if len(err.Causes) == 0 {
		return []error{fmt.Errorf("%s %s", fieldName(err.InstanceLocation), err.ErrorKind.LocalizedString(defaultPrinter))}
	}

	var errs []error
	for _, cause := range err.Causes {
		errs = append(errs, rootCauses(cause)...)
	}
	return errs
}

func fieldName(location []string) string {
	if len(location) == 0 {
		return "config"
	}
	return "config field " + strings.Join(location, ".")
}
