package session

import (
	"slices"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
)

// Tag names the dialogue a sender is in.
type Tag string

// Dialogue tags.
const (
	TagMainMenu      Tag = "MAIN_MENU"
	TagBBSMenu       Tag = "BBS_MENU"
	TagUtilitiesMenu Tag = "UTILITIES_MENU"
	TagMail          Tag = "MAIL"
	TagBulletin      Tag = "BULLETIN"
	TagChannel       Tag = "CHANNEL"
	TagStats         Tag = "STATS"
	TagCheckMail     Tag = "CHECK_MAIL"
	TagCheckBulletin Tag = "CHECK_BULLETIN"
	TagCheckChannel  Tag = "CHECK_CHANNEL"
)

// State is one sender's position in a dialogue plus whatever the dialogue
// has collected so far. Only the fields the current step needs are set.
type State struct {
	Command Tag
	Step    int

	Board   string
	Subject string
	Content string

	// Recipient is the resolved mail recipient.
	Recipient domain.NodeID

	// MailID, UniqueID and Sender describe the mail being read.
	MailID   int64
	UniqueID string
	Sender   string

	// ReplyTo is the local id of the mail being answered.
	ReplyTo int64

	ChannelName string

	// Candidates holds the nodes offered for disambiguation.
	Candidates []domain.NodeInfo

	// Listing holds the row ids offered by a numbered list.
	Listing []int64

	// Channels holds the channel entries offered by a numbered list.
	Channels []domain.Channel
}

// At returns a fresh State for tag at step.
func At(tag Tag, step int) State {
	return State{Command: tag, Step: step}
}

// Clone returns a copy that shares no slices with s.
func (s State) Clone() State {
	s.Candidates = slices.Clone(s.Candidates)
	s.Listing = slices.Clone(s.Listing)
	s.Channels = slices.Clone(s.Channels)
	return s
}

// WithStep returns a copy of s moved to step.
func (s State) WithStep(step int) State {
	c := s.Clone()
	c.Step = step
	return c
}
