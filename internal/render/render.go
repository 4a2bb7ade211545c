package render

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/m3rciful/suggestbot/internal/action"
	"github.com/m3rciful/suggestbot/internal/catalog"
	"github.com/m3rciful/suggestbot/internal/session"
)

// ErrIncomplete is returned when the session lacks what the step needs.
var ErrIncomplete = errors.New("render: session incomplete for step")

// Button labels.
const (
	LabelThisIsIt = "This Is It"
	LabelNext     = "Next"
	LabelPrevious = "Previous"
	LabelSuggest  = "Suggest"
	LabelCancel   = "❌ Cancel"
)

// Texts.
const (
	MenuText = "Try new commands\n" +
		"/movie for suggesting movies,\n" +
		"/series for suggesting series,\n" +
		"/recipes for suggesting food,\n" +
		"/music for suggesting a new song\n" +
		"enjoy."
	NotFoundText   = "No movies by that name were found, try again."
	EmptyQueryText = "Please type a movie name after /movie"
	ratePrompt     = "How would you rate it?"
	confirmPrompt  = "Send this suggestion?"

	// captionLimit is the Telegram limit for media captions.
	captionLimit = 1024
)

const (
	starFull  = "★"
	starEmpty = "☆"
)

// Renderer turns sessions into directives.
type Renderer struct {
	// Placeholder is shown when an item has no usable image.
	Placeholder string
}

// New returns a Renderer using placeholder for missing images.
func New(placeholder string) *Renderer {
	return &Renderer{Placeholder: strings.TrimSpace(placeholder)}
}

// Render returns the directive that shows s at step. Item steps edit the
// session's message when it has one and send a new message otherwise.
func (r *Renderer) Render(step session.Step, s *session.UserSession) (Directive, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil session", ErrIncomplete)
	}
	var (
		caption string
		image   string
		buttons []Button
	)
	switch step {
	case session.StepInitial:
		return r.Menu(), nil
	case session.StepName:
		item, ok := s.Presented()
		if !ok {
			return nil, fmt.Errorf("%w: %s without presented item", ErrIncomplete, step)
		}
		caption = itemCaption(item)
		image = r.image(item.ImageRef)
		buttons = ItemButtons(s)
	case session.StepRate:
		if s.Detail == nil {
			return nil, fmt.Errorf("%w: %s without detail", ErrIncomplete, step)
		}
		caption = detailCaption(*s.Detail) + "\n\n" + ratePrompt
		image = r.image(s.Detail.ImageRef)
		buttons = RatingButtons()
	case session.StepDescription:
		if s.Detail == nil || !s.HasRating {
			return nil, fmt.Errorf("%w: %s without detail or rating", ErrIncomplete, step)
		}
		caption = detailCaption(*s.Detail) + "\nRating: " + Stars(s.Rating) + "\n\n" + confirmPrompt
		image = r.image(s.Detail.ImageRef)
		buttons = []Button{
			{Label: LabelSuggest, Token: action.TokenSuggest},
			cancelButton(),
		}
	default:
		return nil, fmt.Errorf("%w: step %s is not rendered", ErrIncomplete, step)
	}

	caption = truncate(caption, captionLimit)
	if s.MessageID == 0 {
		return SendNewMessage{Caption: caption, ImageRef: image, Buttons: buttons}, nil
	}
	return EditMessage{MessageID: s.MessageID, Caption: caption, ImageRef: image, Buttons: buttons}, nil
}

// ItemButtons returns the keyboard for the name step. Next and Previous
// follow the session's IsLast and IsFirst.
func ItemButtons(s *session.UserSession) []Button {
	buttons := []Button{{Label: LabelThisIsIt, Token: action.TokenThisIsIt}}
	if !s.IsLast() {
		buttons = append(buttons, Button{Label: LabelNext, Token: action.TokenNext})
	}
	if !s.IsFirst() {
		buttons = append(buttons, Button{Label: LabelPrevious, Token: action.TokenPrevious})
	}
	return append(buttons, cancelButton())
}

// RatingButtons returns one button per rating plus cancel.
func RatingButtons() []Button {
	buttons := make([]Button, 0, action.MaxRating-action.MinRating+2)
	for n := action.MinRating; n <= action.MaxRating; n++ {
		buttons = append(buttons, Button{Label: Stars(n), Token: action.RateToken(n)})
	}
	return append(buttons, cancelButton())
}

// Menu is the command overview sent on /start, /help and after a reset.
func (r *Renderer) Menu() SendNewMessage {
	return SendNewMessage{Caption: MenuText}
}

// NotFound is sent when a search yields nothing.
func (r *Renderer) NotFound() SendNewMessage {
	return SendNewMessage{Caption: NotFoundText}
}

// EmptyQuery is sent for /movie without a name.
func (r *Renderer) EmptyQuery() SendNewMessage {
	return SendNewMessage{Caption: EmptyQueryText}
}

// Confirmation replaces the item message once the suggestion is stored.
func (r *Renderer) Confirmation(s *session.UserSession) EditMessage {
	title, image := "your movie", r.Placeholder
	if s.Detail != nil {
		title = s.Detail.Title
		image = r.image(s.Detail.ImageRef)
	}
	return EditMessage{
		MessageID: s.MessageID,
		Caption:   truncate(fmt.Sprintf("Thanks! Your suggestion of %s was sent.", title), captionLimit),
		ImageRef:  image,
	}
}

// Stars renders rating r as full and empty stars, five in total.
func Stars(r int) string {
	r = action.ClampRating(r)
	return strings.Repeat(starFull, r) + strings.Repeat(starEmpty, action.MaxRating-r)
}

func (r *Renderer) image(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.EqualFold(ref, "N/A") {
		return r.Placeholder
	}
	return ref
}

func cancelButton() Button {
	return Button{Label: LabelCancel, Token: action.TokenCancel}
}

func itemCaption(item catalog.SearchResult) string {
	return fmt.Sprintf("Is this the movie you meant?\nName - %s\nYear - %s", item.Title, year(item.Year))
}

func detailCaption(d catalog.DetailRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", d.Title)
	fmt.Fprintf(&b, "Year: %s\n", year(d.Year))
	if d.RuntimeMinutes >= 0 {
		fmt.Fprintf(&b, "Time: %d min\n", d.RuntimeMinutes)
	} else {
		b.WriteString("Time: unknown\n")
	}
	fmt.Fprintf(&b, "Genres: %s\n", list(d.Genres))
	fmt.Fprintf(&b, "Directors: %s\n", list(d.Directors))
	fmt.Fprintf(&b, "Actors: %s", list(d.Actors))
	if d.Synopsis != "" {
		b.WriteString("\n\n" + d.Synopsis)
	}
	return b.String()
}

func year(y int) string {
	if y < 0 {
		return "unknown"
	}
	return strconv.Itoa(y)
}

func list(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit-1]) + "…"
}
