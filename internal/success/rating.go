package success

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"campus-meetup-confirm/internal/model"
	"campus-meetup-confirm/pkg/logger"
)

// Submitter posts a rating to the backend
type Submitter interface {
	SubmitRating(ctx context.Context, rating *model.Rating) error
}

// RatingPrompt collects the optional post-completion feedback. A rating
// below 1 never reaches the network; submission success and failure are
// both terminal, distinguished only by the message.
type RatingPrompt struct {
	In        io.Reader
	Out       io.Writer
	Submitter Submitter
	Logger    *logger.Logger
}

// Run asks for a rating, comment, and category tags, then submits. An
// empty rating skips feedback entirely.
func (p *RatingPrompt) Run(ctx context.Context, sess *model.Session) error {
	reader := bufio.NewReader(p.In)

	fmt.Fprintf(p.Out, "Rate your experience with %s (1-5, empty to skip): ", sess.SellerName)
	value, err := readLine(reader)
	if err != nil || value == "" {
		return nil
	}

	ratingValue, err := strconv.Atoi(value)
	if err != nil || ratingValue < 1 || ratingValue > 5 {
		fmt.Fprintln(p.Out, "Rating must be between 1 and 5; skipping feedback.")
		return nil
	}

	fmt.Fprint(p.Out, "Comment (optional): ")
	comment, _ := readLine(reader)

	fmt.Fprintf(p.Out, "Tags, comma separated (options: %s): ", strings.Join(model.RatingCategories, ", "))
	tagLine, _ := readLine(reader)

	rating := &model.Rating{
		TransactionID: sess.TransactionID,
		SellerID:      sess.SellerID,
		Rating:        ratingValue,
		Comment:       comment,
		Categories:    parseCategories(tagLine),
	}

	// Client-side validation is the gate; an invalid rating makes no call
	if err := rating.Validate(); err != nil {
		fmt.Fprintf(p.Out, "Feedback not submitted: %v\n", err)
		return nil
	}

	if err := p.Submitter.SubmitRating(ctx, rating); err != nil {
		p.Logger.WithTransactionID(sess.TransactionID).Error("Rating submission failed", "error", err)
		fmt.Fprintln(p.Out, "Could not submit feedback. Thanks anyway!")
		return nil
	}

	fmt.Fprintln(p.Out, "Thanks for your feedback!")
	return nil
}

func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" && err != nil {
		return "", err
	}
	return line, nil
}

func parseCategories(line string) []string {
	if strings.TrimSpace(line) == "" {
		return []string{}
	}
	parts := strings.Split(line, ",")
	categories := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			categories = append(categories, trimmed)
		}
	}
	return categories
}
