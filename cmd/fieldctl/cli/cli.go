package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/fieldops/fieldops/internal/materials"
	"github.com/fieldops/fieldops/internal/shared"
)

// Exit codes returned by Run.
const (
	ExitOK         = 0
	ExitError      = 1
	ExitUsage      = 2
	ExitShortfalls = 3
)

// Materials is the lifecycle surface used by the CLI.
type Materials interface {
	List(ctx context.Context, scope shared.Scope, filter materials.ListFilter) ([]materials.MaterialRequest, error)
	GetDetail(ctx context.Context, id string) (materials.MaterialRequestDetail, error)
	Approve(ctx context.Context, id string, input materials.ApproveInput) (materials.MaterialRequestDetail, error)
	Reject(ctx context.Context, id string, input materials.RejectInput) (materials.MaterialRequestDetail, error)
	Deliver(ctx context.Context, id string, input materials.DeliverInput) (materials.MaterialRequestDetail, error)
}

// Catalog lists project catalogs.
type Catalog interface {
	List(ctx context.Context, projectID string) ([]materials.CatalogItem, error)
}

// Queue enqueues and inspects background jobs.
type Queue interface {
	EnqueueCatalogWarmup(ctx context.Context, projectIDs []string) (*asynq.TaskInfo, error)
	InspectQueue(ctx context.Context) (QueueStats, error)
}

// Runner dispatches fieldctl commands. Queue may be nil when Redis is not
// reachable; queue commands then fail.
type Runner struct {
	Materials Materials
	Catalog   Catalog
	Queue     Queue
	Stdout    io.Writer
	Stderr    io.Writer
}

const usage = `Usage: fieldctl <command> [flags]

Commands:
  list          list material requests (-project, -status, -projects, -all)
  detail        show one request: detail <id>
  reconcile     per-line pending and anomalies: reconcile <id>
  approve       approve: approve <id> [-obs text] [-item itemId=qty ...]
  reject        reject: reject <id> -reason text
  deliver       register a delivery: deliver <id> -item itemId=qty[:lot] ... [-obs text] [-image ref ...]
  catalog       list the project catalog (-project)
  warm-catalog  enqueue a catalog warmup (-project, repeatable)
  queue         show default queue statistics

Every command accepts -o json|yaml (default json).
`

// Run executes args and returns the process exit code.
func (r *Runner) Run(ctx context.Context, args []string) int {
	if r.Stdout == nil {
		r.Stdout = os.Stdout
	}
	if r.Stderr == nil {
		r.Stderr = os.Stderr
	}
	if len(args) == 0 || args[0] == "-h" || args[0] == "help" {
		_, _ = fmt.Fprint(r.Stderr, usage)
		return ExitUsage
	}

	cmd, rest := args[0], args[1:]
	fs := flag.NewFlagSet("fieldctl "+cmd, flag.ContinueOnError)
	fs.SetOutput(r.Stderr)
	format := fs.String("o", FormatJSON, "output format: json or yaml")

	var id string
	if len(rest) > 0 && !strings.HasPrefix(rest[0], "-") {
		id, rest = rest[0], rest[1:]
	}

	var run func() (any, error)
	switch cmd {
	case "list":
		project := fs.String("project", "", "project id filter")
		status := fs.String("status", "", "status filter passed to the server")
		projects := fs.String("projects", "", "comma separated assigned projects")
		all := fs.Bool("all", false, "unrestricted scope")
		run = func() (any, error) {
			scope := shared.Scope{ProjectIDs: shared.ParseProjectIDs(*projects), Unrestricted: *all}
			items, err := r.Materials.List(ctx, scope, materials.ListFilter{ProjectID: *project, Status: *status})
			if err != nil {
				return nil, err
			}
			return map[string]any{"items": items, "total": len(items)}, nil
		}
	case "detail":
		run = func() (any, error) {
			return r.Materials.GetDetail(ctx, id)
		}
	case "reconcile":
		run = func() (any, error) {
			detail, err := r.Materials.GetDetail(ctx, id)
			if err != nil {
				return nil, err
			}
			return materials.Summarize(detail), nil
		}
	case "approve":
		obs := fs.String("obs", "", "observations")
		var items stringList
		fs.Var(&items, "item", "itemId=qty approved override (repeatable)")
		run = func() (any, error) {
			input := materials.ApproveInput{Observations: *obs}
			for _, raw := range items {
				itemID, qty, _, err := parseItem(raw)
				if err != nil {
					return nil, err
				}
				input.Items = append(input.Items, materials.ApproveItem{ItemID: itemID, ApprovedQty: &qty})
			}
			return r.Materials.Approve(ctx, id, input)
		}
	case "reject":
		reason := fs.String("reason", "", "rejection reason (required)")
		run = func() (any, error) {
			return r.Materials.Reject(ctx, id, materials.RejectInput{Observations: *reason})
		}
	case "deliver":
		obs := fs.String("obs", "", "observations")
		var items, images stringList
		fs.Var(&items, "item", "itemId=qty[:lot] delivered quantity (repeatable)")
		fs.Var(&images, "image", "uploaded image reference (repeatable)")
		run = func() (any, error) {
			input := materials.DeliverInput{Observations: *obs, Images: images}
			for _, raw := range items {
				itemID, qty, lot, err := parseItem(raw)
				if err != nil {
					return nil, err
				}
				input.Deliveries = append(input.Deliveries, materials.DeliveryEntry{ItemID: itemID, Quantity: qty, LotNumber: lot})
			}
			return r.Materials.Deliver(ctx, id, input)
		}
	case "catalog":
		project := fs.String("project", "", "project id")
		run = func() (any, error) {
			items, err := r.Catalog.List(ctx, *project)
			if err != nil {
				return nil, err
			}
			return map[string]any{"items": items, "total": len(items)}, nil
		}
	case "warm-catalog":
		var projects stringList
		fs.Var(&projects, "project", "project id (repeatable, comma separated allowed)")
		run = func() (any, error) {
			if r.Queue == nil {
				return nil, errors.New("queue not configured")
			}
			ids := shared.ParseProjectIDs(strings.Join(projects, ","))
			info, err := r.Queue.EnqueueCatalogWarmup(ctx, ids)
			if err != nil {
				return nil, err
			}
			return map[string]any{"taskId": info.ID, "queue": info.Queue, "projectIds": ids}, nil
		}
	case "queue":
		run = func() (any, error) {
			if r.Queue == nil {
				return nil, errors.New("queue not configured")
			}
			return r.Queue.InspectQueue(ctx)
		}
	default:
		_, _ = fmt.Fprintf(r.Stderr, "unknown command %q\n\n%s", cmd, usage)
		return ExitUsage
	}

	if err := fs.Parse(rest); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK
		}
		return ExitUsage
	}
	if id == "" {
		id = fs.Arg(0)
	}
	if *format != FormatJSON && *format != FormatYAML {
		_, _ = fmt.Fprintf(r.Stderr, "%s: unsupported output format %q\n", cmd, *format)
		return ExitUsage
	}

	result, err := run()
	if err != nil {
		return r.fail(cmd, err)
	}
	if err := render(r.Stdout, *format, result); err != nil {
		_, _ = fmt.Fprintf(r.Stderr, "%s: encode output: %v\n", cmd, err)
		return ExitError
	}
	return ExitOK
}

func (r *Runner) fail(cmd string, err error) int {
	if shortfalls := materials.ValidationDetails(err); len(shortfalls) > 0 {
		_, _ = fmt.Fprintf(r.Stderr, "%s: %v\n", cmd, err)
		for _, line := range shortfalls {
			_, _ = fmt.Fprintf(r.Stderr, "  - %s\n", line)
		}
		return ExitShortfalls
	}
	_, _ = fmt.Fprintf(r.Stderr, "%s: %v\n", cmd, err)
	if errors.Is(err, materials.ErrValidation) || errors.Is(err, errBadItem) {
		return ExitUsage
	}
	return ExitError
}

var errBadItem = errors.New("item must look like itemId=qty")

// parseItem splits "itemId=qty[:lot]".
func parseItem(raw string) (id string, qty float64, lot string, err error) {
	id, rest, ok := strings.Cut(strings.TrimSpace(raw), "=")
	if !ok || strings.TrimSpace(id) == "" {
		return "", 0, "", fmt.Errorf("%w: %q", errBadItem, raw)
	}
	rest, lot, _ = strings.Cut(rest, ":")
	qty, err = strconv.ParseFloat(strings.TrimSpace(rest), 64)
	if err != nil {
		return "", 0, "", fmt.Errorf("%w: %q", errBadItem, raw)
	}
	return strings.TrimSpace(id), qty, strings.TrimSpace(lot), nil
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}
