// Package render builds the outbound messages for each step of the flow.
// Everything here is pure: it reads a session and returns directives.
package render

// Button is one inline keyboard button. Token is the raw callback data.
type Button struct {
	Label string
	Token string
}

// Directive is an instruction for the transport.
type Directive interface {
	directive()
}

// SendNewMessage posts a new message. ImageRef empty means plain text.
type SendNewMessage struct {
	Caption  string
	ImageRef string
	Buttons  []Button
}

// EditMessage replaces media, caption and keyboard of an existing message.
type EditMessage struct {
	MessageID int
	Caption   string
	ImageRef  string
	Buttons   []Button
}

// EditButtonsOnly replaces the keyboard of an existing message. No buttons
// removes the keyboard.
type EditButtonsOnly struct {
	MessageID int
	Buttons   []Button
}

// DeleteMessage removes an existing message.
type DeleteMessage struct {
	MessageID int
}

func (SendNewMessage) directive()  {}
func (EditMessage) directive()     {}
func (EditButtonsOnly) directive() {}
func (DeleteMessage) directive()   {}
