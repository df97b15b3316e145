package bbs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
	"github.com/yndnr/meshbbs-go/internal/core/service"
	"github.com/yndnr/meshbbs-go/internal/session"
)

// QuickDelimiter separates quick command arguments.
const QuickDelimiter = ",,"

// Quick command names.
const (
	QuickSendMail     = "SM"
	QuickCheckMail    = "CM"
	QuickPostBulletin = "PB"
	QuickCheckBoard   = "CB"
	QuickPostChannel  = "CHP"
	QuickListChannels = "CHL"
)

// quickArity is the number of ",,"-separated parts, command included.
// Zero means the command takes no arguments.
var quickArity = map[string]int{
	QuickSendMail:     4,
	QuickCheckMail:    0,
	QuickPostBulletin: 4,
	QuickCheckBoard:   2,
	QuickPostChannel:  3,
	QuickListChannels: 0,
}

var quickUsage = map[string]string{
	QuickSendMail:     "Send Mail Quick Command format:\nSM,,{short_name},,{subject},,{message}",
	QuickPostBulletin: "Post Bulletin Quick Command format:\nPB,,{board_name},,{subject},,{content}",
	QuickCheckBoard:   "Check Bulletins Quick Command format:\nCB,,board_name",
	QuickPostChannel:  "Post Channel Quick Command format:\nCHP,,{channel_name},,{channel_url}",
}

type quickCommand struct {
	Name string
	// Args excludes the command name. It is nil for arity mismatches.
	Args []string
	Raw  string
}

// parseQuick recognizes a quick command. Commands with arguments need the
// delimiter right after the name ("SM,,"); the others must be the whole
// input ("CM").
func parseQuick(input string) (quickCommand, bool) {
	head, _, hasArgs := strings.Cut(input, QuickDelimiter)
	name := strings.ToUpper(strings.TrimSpace(head))
	arity, ok := quickArity[name]
	if !ok {
		return quickCommand{}, false
	}
	if arity == 0 {
		return quickCommand{Name: name, Raw: input}, !hasArgs
	}
	if !hasArgs {
		return quickCommand{}, false
	}

	cmd := quickCommand{Name: name, Raw: input}
	parts := strings.SplitN(input, QuickDelimiter, arity)
	if len(parts) == arity {
		cmd.Args = parts[1:]
	}
	return cmd, true
}

func (r *Router) quick(ctx context.Context, t *Turn, cmd quickCommand) {
	if quickArity[cmd.Name] > 0 && cmd.Args == nil {
		t.Reply(quickUsage[cmd.Name])
		return
	}

	switch cmd.Name {
	case QuickSendMail:
		r.quickSendMail(ctx, t, cmd.Args[0], cmd.Args[1], cmd.Args[2])
	case QuickCheckMail:
		r.quickCheckMail(ctx, t)
	case QuickPostBulletin:
		r.quickPostBulletin(ctx, t, strings.TrimSpace(cmd.Args[0]), cmd.Args[1], cmd.Args[2])
	case QuickCheckBoard:
		r.quickCheckBoard(ctx, t, strings.TrimSpace(cmd.Args[0]))
	case QuickPostChannel:
		r.quickPostChannel(ctx, t, cmd.Args[0], cmd.Args[1])
	case QuickListChannels:
		r.quickListChannels(ctx, t)
	}
}

func (r *Router) quickSendMail(ctx context.Context, t *Turn, shortName, subject, content string) {
	shortName = strings.TrimSpace(shortName)
	nodes := r.dir.NodesByShortName(shortName)
	switch {
	case len(nodes) == 0:
		t.Replyf("Node with short name '%s' not found.", shortName)
		return
	case len(nodes) > 1:
		t.Replyf("Multiple nodes with short name '%s' found. Please be more specific.", shortName)
		return
	}
	to := nodes[0]

	_, err := r.mail.Send(ctx, &service.SendMailRequest{
		Sender:          t.From,
		SenderShortName: t.senderShortName(),
		Recipient:       to.ID,
		Subject:         subject,
		Content:         content,
		Origin:          service.OriginLocal,
	})
	if err != nil {
		r.quickFailed(t, QuickSendMail, err)
		return
	}
	t.Replyf("Mail has been sent to %s.", to.DisplayName())
}

func (r *Router) quickCheckMail(ctx context.Context, t *Turn) {
	list, err := r.mail.List(ctx, t.From)
	if err != nil {
		r.quickFailed(t, QuickCheckMail, err)
		return
	}
	if len(list) == 0 {
		t.Reply("You have no new messages.")
		return
	}

	var b strings.Builder
	b.WriteString("📬 You have the following messages:\n")
	ids := make([]int64, len(list))
	for i, m := range list {
		ids[i] = m.ID
		fmt.Fprintf(&b, "%02d. From: %s, Subject: %s\n", i+1, m.SenderShortName, m.Subject)
	}
	b.WriteString("\nPlease reply with the number of the message you want to read.")
	t.Reply(b.String())

	next := session.At(session.TagCheckMail, 1)
	next.Listing = ids
	t.Set(next)
}

func (r *Router) quickPostBulletin(ctx context.Context, t *Turn, board, subject, content string) {
	if !r.canPost(t.From, board) {
		t.Reply(noPermission)
		return
	}
	_, err := r.bulletins.Post(ctx, &service.PostBulletinRequest{
		Board:           board,
		SenderShortName: t.senderShortName(),
		Subject:         subject,
		Content:         content,
		Origin:          service.OriginLocal,
	})
	if err != nil {
		r.quickFailed(t, QuickPostBulletin, err)
		return
	}
	t.Replyf("Your bulletin '%s' has been posted to %s.", subject, board)
}

func (r *Router) quickCheckBoard(ctx context.Context, t *Turn, name string) {
	if name == "" {
		t.Reply(quickUsage[QuickCheckBoard])
		return
	}
	board := ""
	for _, b := range r.cfg.Boards {
		if strings.EqualFold(b, name) {
			board = b
			break
		}
	}
	if board == "" {
		t.Replyf("Board '%s' not found. Boards: %s", name, strings.Join(r.cfg.Boards, ", "))
		return
	}

	list, err := r.bulletins.List(ctx, board)
	if err != nil {
		r.quickFailed(t, QuickCheckBoard, err)
		return
	}
	if len(list) == 0 {
		t.Replyf("No bulletins available on %s board.", board)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📰 Bulletins on %s board:\n", board)
	ids := make([]int64, len(list))
	for i, item := range list {
		ids[i] = item.ID
		fmt.Fprintf(&b, "[%02d] Subject: %s, From: %s, Date: %s\n",
			i+1, item.Subject, item.SenderShortName, domain.FormatDate(item.Date))
	}
	b.WriteString("\nPlease reply with the number of the bulletin you want to read.")
	t.Reply(b.String())

	next := session.At(session.TagCheckBulletin, 1)
	next.Board = board
	next.Listing = ids
	t.Set(next)
}

func (r *Router) quickPostChannel(ctx context.Context, t *Turn, name, url string) {
	name = strings.TrimSpace(name)
	if _, err := r.channels.Add(ctx, name, strings.TrimSpace(url), service.OriginLocal); err != nil {
		r.quickFailed(t, QuickPostChannel, err)
		return
	}
	t.Replyf("Channel '%s' has been added to the directory.", name)
}

func (r *Router) quickListChannels(ctx context.Context, t *Turn) {
	list, ok := r.listChannels(ctx, t)
	if !ok {
		return
	}
	var b strings.Builder
	b.WriteString("Available Channels:\n")
	for i, c := range list {
		fmt.Fprintf(&b, "%02d. Name: %s\n", i+1, c.Name)
	}
	b.WriteString("\nPlease reply with the number of the channel you want to view.")
	t.Reply(b.String())

	next := session.At(session.TagCheckChannel, 1)
	next.Channels = list
	t.Set(next)
}

// quickFailed answers a quick command whose side effect failed. Invalid
// arguments get the usage line.
func (r *Router) quickFailed(t *Turn, name string, err error) {
	if errors.Is(err, domain.ErrInvalidArgument) {
		if usage, ok := quickUsage[name]; ok {
			t.Reply(usage)
			return
		}
	}
	r.logger.Error("quick command failed", "node", t.From, "command", name, "error", err)
	t.Replyf("Error processing %s command.", name)
}
