package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"

	"github.com/bitbucket-cli/bkt/internal/output"
)

// NewAPICmd creates the raw API escape hatch.
func NewAPICmd() *cobra.Command {
	var method string
	var fields []string
	var jqExpr string
	var paginate bool

	cmd := &cobra.Command{
		Use:   "api <path>",
		Short: "Make an authenticated API request",
		Long: `Make an authenticated request against any Bitbucket API path.

The path is relative to the configured API base URL. Request bodies are
built from repeated -f key=value flags. Responses can be filtered with
a jq expression via --jq.`,
		Example: `  bkt api /user
  bkt api /repositories/acme --jq '.values[].slug'
  bkt api -X POST /repositories/acme/site/issues -f title="Broken build"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}

			body, err := fieldsToBody(fields)
			if err != nil {
				return err
			}

			var data json.RawMessage
			switch strings.ToUpper(method) {
			case "GET":
				if paginate {
					values, err := app.API.GetAll(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					data, err = json.Marshal(values)
					if err != nil {
						return err
					}
				} else {
					resp, err := app.API.Get(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					data = resp.Data
				}
			case "POST":
				resp, err := app.API.Post(cmd.Context(), args[0], body)
				if err != nil {
					return err
				}
				data = resp.Data
			case "PUT":
				resp, err := app.API.Put(cmd.Context(), args[0], body)
				if err != nil {
					return err
				}
				data = resp.Data
			case "DELETE":
				resp, err := app.API.Delete(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				data = resp.Data
			default:
				return output.ErrUsage(fmt.Sprintf("unsupported method %q", method))
			}

			if jqExpr != "" {
				return runJQ(cmd, jqExpr, data)
			}
			return printRaw(cmd, data)
		},
	}

	cmd.Flags().StringVarP(&method, "method", "X", "GET", "HTTP method (GET, POST, PUT, DELETE)")
	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "Body field as key=value (repeatable)")
	cmd.Flags().StringVar(&jqExpr, "jq", "", "Filter the response with a jq expression")
	cmd.Flags().BoolVar(&paginate, "paginate", false, "Follow pagination and return all values")

	return cmd
}

// fieldsToBody turns repeated key=value flags into a JSON object.
// Values parse as JSON when they can, so -f priority=3 is a number and
// -f title=Fix is a string.
func fieldsToBody(fields []string) (map[string]any, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	body := make(map[string]any, len(fields))
	for _, f := range fields {
		key, value, ok := strings.Cut(f, "=")
		if !ok {
			return nil, output.ErrUsage(fmt.Sprintf("invalid field %q; expected key=value", f))
		}
		var parsed any
		if err := json.Unmarshal([]byte(value), &parsed); err == nil {
			body[key] = parsed
		} else {
			body[key] = value
		}
	}
	return body, nil
}

func printRaw(cmd *cobra.Command, data json.RawMessage) error {
	if len(data) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		// Not JSON (e.g. pipeline logs); pass through.
		cmd.OutOrStdout().Write(data)
		return nil
	}
	return printJSON(cmd.OutOrStdout(), v)
}

// runJQ evaluates a jq expression against the response and prints each
// emitted value on its own line, bare strings unquoted like jq -r.
func runJQ(cmd *cobra.Command, expr string, data json.RawMessage) error {
	query, err := gojq.Parse(expr)
	if err != nil {
		return output.ErrUsage(fmt.Sprintf("invalid jq expression: %v", err))
	}

	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("response is not JSON: %w", err)
	}

	out := cmd.OutOrStdout()
	iter := query.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return fmt.Errorf("jq: %w", err)
		}
		switch val := v.(type) {
		case string:
			fmt.Fprintln(out, val)
		default:
			encoded, err := gojq.Marshal(val)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(encoded))
		}
	}
	return nil
}
