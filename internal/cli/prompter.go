package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/siftd/sift/internal/model"
	"github.com/siftd/sift/internal/suggest"
)

// ErrInputCancelled is returned when input is canceled by context.
var ErrInputCancelled = errors.New("input canceled")

// ErrReviewDone is returned when the user ends the review session.
var ErrReviewDone = errors.New("review finished")

// Prompter drives the interactive correction loop over uncategorized
// transactions. It only collects confirmed (merchant, category) decisions;
// persisting them is the learner's job.
type Prompter struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewPrompter creates a prompter reading choices from r and writing to w.
func NewPrompter(r io.Reader, w io.Writer) *Prompter {
	return &Prompter{
		reader: bufio.NewReader(r),
		writer: w,
	}
}

// ConfirmCategory shows one transaction with ranked suggestions and the full
// category list, and returns the category the user confirmed. An empty
// category with nil error means the transaction was skipped; ErrReviewDone
// ends the session.
func (p *Prompter) ConfirmCategory(ctx context.Context, txn model.Transaction, suggestions []suggest.Suggestion, categories []string) (string, error) {
	fmt.Fprintln(p.writer)
	fmt.Fprintln(p.writer, TitleStyle.Render("Review transaction"))
	fmt.Fprintf(p.writer, "  %s  %s\n",
		SubtleStyle.Render(txn.Date.Format("2006-01-02")),
		BoldStyle.Render(txn.Description))
	if txn.Amount.Valid {
		fmt.Fprintf(p.writer, "  amount: %s\n", txn.Amount.Decimal.StringFixed(2))
	}

	if len(suggestions) > 0 {
		fmt.Fprintln(p.writer, SubtleStyle.Render("  suggested:"))
		for i, s := range suggestions {
			fmt.Fprintf(p.writer, "    [%d] %s\n", i+1, s.Category)
		}
	}
	fmt.Fprintf(p.writer, "  %s\n", SubtleStyle.Render("categories: "+strings.Join(categories, ", ")))
	fmt.Fprint(p.writer, "Category (number, name, blank to skip, q to quit): ")

	line, err := p.readLine(ctx)
	if err != nil {
		return "", err
	}
	choice := strings.TrimSpace(line)
	switch {
	case choice == "":
		return "", nil
	case choice == "q" || choice == "quit":
		return "", ErrReviewDone
	}

	if n, err := strconv.Atoi(choice); err == nil {
		if n < 1 || n > len(suggestions) {
			fmt.Fprintln(p.writer, ErrorStyle.Render("no such suggestion"))
			return "", nil
		}
		return suggestions[n-1].Category, nil
	}

	for _, category := range categories {
		if strings.EqualFold(category, choice) {
			return category, nil
		}
	}
	fmt.Fprintln(p.writer, ErrorStyle.Render(fmt.Sprintf("unknown category %q", choice)))
	return "", nil
}

// readLine reads one line, respecting context cancellation. The read happens
// in a goroutine because os.Stdin has no deadline support.
func (p *Prompter) readLine(ctx context.Context) (string, error) {
	type result struct {
		err   error
		value string
	}
	resultCh := make(chan result, 1)

	go func() {
		value, err := p.reader.ReadString('\n')
		resultCh <- result{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case res := <-resultCh:
		if res.err != nil && !errors.Is(res.err, io.EOF) {
			return "", res.err
		}
		if res.value == "" && errors.Is(res.err, io.EOF) {
			return "", ErrReviewDone
		}
		return strings.TrimRight(res.value, "\r\n"), nil
	}
}
