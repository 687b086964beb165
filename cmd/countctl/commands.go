package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/vbonduro/stockcount/internal/api"
	"github.com/vbonduro/stockcount/internal/client"
	"github.com/vbonduro/stockcount/internal/count"
	"github.com/vbonduro/stockcount/internal/workflow"
)

var errUsage = errors.New("invalid arguments")

// CLI runs one countctl command against a stockcount server.
type CLI struct {
	BaseURL  string
	Token    string
	Operator string
	In       io.Reader
	Out      io.Writer
	Logger   *slog.Logger

	reader *bufio.Reader
}

// Confirm implements workflow.Confirmer on the terminal. Anything but an
// explicit yes declines.
func (c *CLI) Confirm(prompt string) bool {
	if c.reader == nil {
		c.reader = bufio.NewReader(c.In)
	}
	fmt.Fprintf(c.Out, "%s [y/N]: ", prompt)
	answer, err := c.reader.ReadString('\n')
	if err != nil && answer == "" {
		fmt.Fprintln(c.Out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, args := args[0], args[1:]
	backend := client.New(c.BaseURL, c.Token)

	switch cmd {
	case "token":
		return c.token(ctx, backend, args)
	case "new":
		if len(args) != 1 {
			return errUsage
		}
		s, err := backend.CreateSession(ctx, args[0])
		if err != nil {
			return c.fail(err)
		}
		c.printSession(s)
		return nil
	case "list":
		status := ""
		if len(args) > 0 {
			status = args[0]
		}
		sessions, err := backend.ListSessions(ctx, status)
		if err != nil {
			return c.fail(err)
		}
		c.printSessions(sessions)
		return nil
	case "lookup":
		if len(args) != 1 {
			return errUsage
		}
		b, err := backend.LookupBatch(ctx, args[0])
		if err != nil {
			return c.fail(err)
		}
		c.printBatch(b)
		return nil
	case "export":
		return c.export(ctx, backend, args)
	}

	if !sessionCommands[cmd] {
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
	return c.sessionCommand(ctx, backend, cmd, args)
}

var sessionCommands = map[string]bool{
	"show": true, "scan": true, "count": true, "breakdown": true,
	"notfound": true, "skip": true, "finalize": true, "cancel": true,
}

// sessionCommand runs the commands that act on an open session.
func (c *CLI) sessionCommand(ctx context.Context, backend *client.Client, cmd string, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	sessionID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid session id %q", args[0])
	}
	args = args[1:]

	wf := workflow.New(backend, c, c.Logger)
	if _, err := wf.Open(ctx, sessionID); err != nil {
		return c.fail(err)
	}

	switch cmd {
	case "show":
	case "scan":
		if len(args) != 1 {
			return errUsage
		}
		return c.scan(ctx, wf, args[0])
	case "count":
		lineID, qty, perr := lineAndInt(args)
		if perr != nil {
			return perr
		}
		err = wf.Count(ctx, lineID, qty)
	case "breakdown":
		if len(args) != 4 {
			return errUsage
		}
		lineID, perr := parseLine(args[0])
		if perr != nil {
			return perr
		}
		err = wf.CountBreakdown(ctx, lineID, args[1], args[2], args[3])
	case "notfound":
		lineID, perr := singleLine(args)
		if perr != nil {
			return perr
		}
		err = wf.NotFound(ctx, lineID)
	case "skip":
		lineID, perr := singleLine(args)
		if perr != nil {
			return perr
		}
		err = wf.Skip(ctx, lineID)
	case "finalize":
		err = wf.Finalize(ctx)
	case "cancel":
		err = wf.Cancel(ctx, strings.Join(args, " "))
	}

	if err != nil {
		return c.fail(err)
	}
	c.printSession(wf.Session())
	return nil
}

func (c *CLI) token(ctx context.Context, backend *client.Client, args []string) error {
	if len(args) != 1 || c.Operator == "" {
		return fmt.Errorf("token needs -operator and the shared secret: %w", errUsage)
	}
	token, err := backend.Token(ctx, c.Operator, args[0])
	if err != nil {
		return c.fail(err)
	}
	fmt.Fprintln(c.Out, token)
	return nil
}

func (c *CLI) scan(ctx context.Context, wf *workflow.Workflow, code string) error {
	result, err := wf.Scan(code)
	if err != nil {
		return c.fail(err)
	}

	switch result.Outcome {
	case count.MatchPending:
		fmt.Fprintf(c.Out, "line %d: %s %s, expected %d\n",
			result.Line.ID, result.Line.BatchNumber, result.Line.ProductName, result.Line.ExpectedQuantity)
		if result.Line.IsLocationMismatch {
			fmt.Fprintln(c.Out, "warning: batch is recorded at a different location")
		}
	case count.MatchAlreadyResolved:
		fmt.Fprintf(c.Out, "line %d: %s\n", result.Line.ID, result.Message)
	default:
		fmt.Fprintln(c.Out, result.Message)
		if !c.Confirm(fmt.Sprintf("Add batch %s to this count?", code)) {
			return nil
		}
		if err := wf.AddScanned(ctx, code); err != nil {
			return c.fail(err)
		}
		c.printSession(wf.Session())
	}
	return nil
}

func (c *CLI) export(ctx context.Context, backend *client.Client, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	sessionID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid session id %q", args[0])
	}

	f, err := os.Create(args[1])
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", args[1], err)
	}
	if err := backend.Export(ctx, sessionID, f); err != nil {
		_ = f.Close()
		_ = os.Remove(args[1])
		return c.fail(err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", args[1], err)
	}
	fmt.Fprintf(c.Out, "wrote %s\n", args[1])
	return nil
}

// fail converts an action error to the operator-facing message.
func (c *CLI) fail(err error) error {
	c.Logger.Debug("command failed", "error", err)
	return errors.New(workflow.Message(err))
}

func parseLine(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid line id %q", raw)
	}
	return id, nil
}

func singleLine(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errUsage
	}
	return parseLine(args[0])
}

func lineAndInt(args []string) (int64, int, error) {
	if len(args) != 2 {
		return 0, 0, errUsage
	}
	lineID, err := parseLine(args[0])
	if err != nil {
		return 0, 0, err
	}
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid quantity %q", args[1])
	}
	return lineID, qty, nil
}

func (c *CLI) printSession(s *api.Session) {
	fmt.Fprintf(c.Out, "%s  #%d  %s  %s  started by %s\n", s.SessionNumber, s.ID, s.Location, s.Status, s.InitiatedBy)
	if s.CancelReason != "" {
		fmt.Fprintf(c.Out, "cancelled by %s: %s\n", s.CancelledBy, s.CancelReason)
	}

	tw := tabwriter.NewWriter(c.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tBATCH\tPRODUCT\tEXPECTED\tCOUNTED\tDIFF\tSTATUS\t")
	for _, l := range s.Lines {
		note := ""
		if l.IsLocationMismatch {
			note = "!location"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			l.ID, l.BatchNumber, l.ProductName, l.ExpectedQuantity,
			optInt(l.CountedQuantity), optInt(l.Discrepancy), l.Status, note)
	}
	_ = tw.Flush()

	if s.Summary != nil {
		fmt.Fprintf(c.Out, "counted %d/%d (%d%%)  pending %d  not found %d  skipped %d\n",
			s.Summary.Counted, s.Summary.Total, s.Progress, s.Summary.Pending, s.Summary.NotFound, s.Summary.Skipped)
	}
}

func (c *CLI) printSessions(sessions []api.Session) {
	tw := tabwriter.NewWriter(c.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNUMBER\tLOCATION\tSTATUS\tSTARTED")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", s.ID, s.SessionNumber, s.Location, s.Status, s.StartedAt.Format("2006-01-02 15:04"))
	}
	_ = tw.Flush()
}

func (c *CLI) printBatch(b *api.Batch) {
	fmt.Fprintf(c.Out, "%s  %s\n", b.BatchNumber, b.ProductName)
	fmt.Fprintf(c.Out, "location   %s\n", b.Location)
	fmt.Fprintf(c.Out, "original   %d\navailable  %d\nallocated  %d\n", b.OriginalQuantity, b.AvailableQuantity, b.AllocatedQuantity)
	if b.Lot != "" {
		fmt.Fprintf(c.Out, "lot        %s\n", b.Lot)
	}
	if b.ExpiryDate != nil {
		fmt.Fprintf(c.Out, "expires    %s\n", b.ExpiryDate.Format("2006-01-02"))
	}
	if b.Packaging != nil {
		fmt.Fprintf(c.Out, "packaging  %s\n", describePackaging(b.Packaging))
	}
}

func describePackaging(p *api.Packaging) string {
	parts := []string{}
	if p.Case != nil {
		parts = append(parts, fmt.Sprintf("%s = %d %s", p.Case.Name, p.Case.Units, p.BaseUnit))
	}
	if p.Box != nil {
		parts = append(parts, fmt.Sprintf("%s = %d %s", p.Box.Name, p.Box.Units, p.BaseUnit))
	}
	if len(parts) == 0 {
		return p.BaseUnit + " only"
	}
	return strings.Join(parts, ", ")
}

func optInt(n *int) string {
	if n == nil {
		return "-"
	}
	return strconv.Itoa(*n)
}
