package loadscope

import (
	"context"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"sigs.k8s.io/yaml"

	"github.com/loadscope/loadscope/internal/common/scopeerrors"
	"github.com/loadscope/loadscope/internal/loadscope/status"
	"github.com/loadscope/loadscope/internal/loadscope/workload"
	"github.com/loadscope/loadscope/pkg/api"
	"github.com/loadscope/loadscope/pkg/client"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// OutputFormat selects how listing commands print their result.
type OutputFormat string

const (
	OutputTable OutputFormat = "table"
	OutputYaml  OutputFormat = "yaml"
)

func ParseOutputFormat(s string) (OutputFormat, error) {
	switch format := OutputFormat(strings.ToLower(strings.TrimSpace(s))); format {
	case OutputTable, OutputYaml:
		return format, nil
	default:
		return "", errors.WithStack(&scopeerrors.ErrInvalidArgument{
			Name:    "output",
			Value:   s,
			Message: fmt.Sprintf("expected %q or %q", OutputTable, OutputYaml),
		})
	}
}

// withPanel runs action against a panel connected with the one-shot connection details, then prints
// the last message the action posted.
func (a *App) withPanel(ctx context.Context, action func(ctx context.Context, panel *workload.Panel) error) error {
	details := a.Params.ApiConnectionDetails
	return client.WithConnection(details, func(c *client.Client) error {
		ctx, cancel := context.WithTimeout(ctx, client.DefaultRequestTimeout(details))
		defer cancel()

		board := status.NewBoard(a.Clock)
		panel := workload.NewPanel(c, workload.NewCatalog(c, oneShotCatalogTtl), board)
		err := action(ctx, panel)
		if message := board.Status().Message; message != nil {
			fmt.Fprintln(a.Out, message.Text)
		}
		return err
	})
}

// ListWorkloads prints the workloads the backend offers with their parameters.
func (a *App) ListWorkloads(ctx context.Context, format OutputFormat) error {
	return a.withPanel(ctx, func(ctx context.Context, panel *workload.Panel) error {
		workloads, err := panel.Workloads(ctx)
		if err != nil {
			return err
		}
		if format == OutputYaml {
			return a.printYaml(workloads)
		}
		table := tablewriter.NewWriter(a.Out)
		table.SetHeader([]string{"Id", "Name", "Parameters", "Series"})
		table.SetAutoWrapText(false)
		for _, desc := range workloads {
			table.Append([]string{desc.WorkloadId, desc.Name, formatParams(desc.Params), formatSeriesNames(desc.WorkloadNames)})
		}
		table.Render()
		return nil
	})
}

// InvokeWorkload launches workload id with overrides, given as name=value pairs.
func (a *App) InvokeWorkload(ctx context.Context, id string, params []string) error {
	overrides, err := parseOverrides(params)
	if err != nil {
		return err
	}
	return a.withPanel(ctx, func(ctx context.Context, panel *workload.Panel) error {
		_, err := panel.Invoke(ctx, id, overrides)
		return err
	})
}

// ActiveWorkloads prints the workloads currently running on the backend.
func (a *App) ActiveWorkloads(ctx context.Context, format OutputFormat) error {
	return a.withPanel(ctx, func(ctx context.Context, panel *workload.Panel) error {
		active, err := panel.Active(ctx)
		if err != nil {
			return err
		}
		if format == OutputYaml {
			return a.printYaml(active)
		}
		table := tablewriter.NewWriter(a.Out)
		table.SetHeader([]string{"Id", "Status", "Started", "Ended"})
		for _, w := range active {
			table.Append([]string{w.WorkloadId, w.Status, formatMillis(w.StartTime), formatMillis(w.EndTime)})
		}
		table.Render()
		return nil
	})
}

func (a *App) TerminateWorkload(ctx context.Context, id string) error {
	return a.withPanel(ctx, func(ctx context.Context, panel *workload.Panel) error {
		_, err := panel.Terminate(ctx, id)
		return err
	})
}

func (a *App) CreateTable(ctx context.Context) error {
	return a.withPanel(ctx, func(ctx context.Context, panel *workload.Panel) error {
		return panel.CreateTable(ctx)
	})
}

func (a *App) TruncateTable(ctx context.Context) error {
	return a.withPanel(ctx, func(ctx context.Context, panel *workload.Panel) error {
		return panel.TruncateTable(ctx)
	})
}

func (a *App) Simulate(ctx context.Context, name string, numThreads, numRequests int) error {
	return a.withPanel(ctx, func(ctx context.Context, panel *workload.Panel) error {
		return panel.Simulate(ctx, name, numThreads, numRequests)
	})
}

// ServerInfo prints the node list of the database cluster as indented json.
func (a *App) ServerInfo(ctx context.Context) error {
	return a.withPanel(ctx, func(ctx context.Context, panel *workload.Panel) error {
		info, err := panel.ServerInfo(ctx)
		if err != nil {
			return err
		}
		var nodes interface{}
		if err := json.Unmarshal(info, &nodes); err != nil {
			return errors.WithStack(err)
		}
		indented, err := json.MarshalIndent(nodes, "", "  ")
		if err != nil {
			return errors.WithStack(err)
		}
		fmt.Fprintln(a.Out, string(indented))
		return nil
	})
}

func (a *App) printYaml(v interface{}) error {
	b, err := yaml.Marshal(v)
	if err != nil {
		return errors.WithStack(err)
	}
	_, err = a.Out.Write(b)
	return err
}

func parseOverrides(params []string) (map[string]string, error) {
	overrides := make(map[string]string, len(params))
	for _, param := range params {
		name, value, ok := strings.Cut(param, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errors.WithStack(&scopeerrors.ErrInvalidArgument{
				Name:    "param",
				Value:   param,
				Message: "expected name=value",
			})
		}
		overrides[name] = value
	}
	return overrides, nil
}

func formatParams(params []api.ParamDesc) string {
	formatted := make([]string, 0, len(params))
	for _, param := range params {
		s := param.Name + ":" + string(param.Type)
		if param.MinValue != nil || param.MaxValue != nil {
			s += fmt.Sprintf("[%s..%s]", formatBound(param.MinValue), formatBound(param.MaxValue))
		}
		if param.DefaultValue != nil {
			s += "=" + formatValue(*param.DefaultValue)
		}
		if param.Required {
			s += " (required)"
		}
		formatted = append(formatted, s)
	}
	return strings.Join(formatted, "\n")
}

func formatBound(bound *int64) string {
	if bound == nil {
		return ""
	}
	return fmt.Sprint(*bound)
}

func formatValue(value api.ParamValue) string {
	if i, ok := value.Int(); ok {
		return fmt.Sprint(i)
	}
	if b, ok := value.Bool(); ok {
		return fmt.Sprint(b)
	}
	if s, ok := value.Str(); ok {
		return fmt.Sprintf("%q", s)
	}
	return value.String()
}

func formatSeriesNames(names map[string]string) string {
	series := maps.Keys(names)
	slices.Sort(series)
	formatted := make([]string, len(series))
	for i, s := range series {
		formatted[i] = s + "=" + names[s]
	}
	return strings.Join(formatted, "\n")
}

func formatMillis(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
