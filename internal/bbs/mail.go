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

// Mail dialogue steps.
const (
	mailStepMenu      = 1
	mailStepSelect    = 2
	mailStepRecipient = 3
	mailStepAction    = 4
	mailStepSubject   = 5
	mailStepPick      = 6
	mailStepBody      = 7
	mailStepAgain     = 8
)

const (
	mailMenu      = "✉️Mail Menu✉️\nWhat would you like to do with mail?\n[R]ead  [S]end E[X]IT"
	mailActions   = "What would you like to do with this message?\n[K]eep  [D]elete  [R]eply"
	mailBodyHelp  = "Send your message. You can send it in multiple messages if it's too long for one.\nSend a single message with END when you're done"
	badMailNumber = "Invalid input. Please enter a valid message number."
	emptySubject  = "The subject cannot be empty. Please send a subject."
)

type mailDialogue struct{ r *Router }

func (h mailDialogue) Enter(_ context.Context, t *Turn) {
	t.Reply(mailMenu)
	t.Set(session.At(session.TagMail, mailStepMenu))
}

func (h mailDialogue) Step(ctx context.Context, t *Turn, st session.State, input string) {
	switch st.Step {
	case mailStepMenu:
		h.menu(ctx, t, input)
	case mailStepSelect:
		n, ok := index(input)
		if !ok {
			t.Reply(badMailNumber)
			return
		}
		h.r.showMail(ctx, t, int64(n), false)
	case mailStepRecipient:
		h.recipient(ctx, t, input)
	case mailStepAction:
		h.r.mailAction(ctx, t, st, input)
	case mailStepSubject:
		if strings.TrimSpace(input) == "" {
			t.Reply(emptySubject)
			return
		}
		t.Reply(mailBodyHelp)
		next := st.WithStep(mailStepBody)
		next.Subject = input
		t.Set(next)
	case mailStepPick:
		i, ok := index(input)
		if !ok || i >= len(st.Candidates) {
			t.Reply("Invalid selection. Please enter a number from the list.")
			return
		}
		h.askSubject(t, st.Candidates[i])
	case mailStepBody:
		if !isEnd(input) {
			st.Content += input + "\n"
			t.Set(st)
			return
		}
		h.deliver(ctx, t, st)
	case mailStepAgain:
		if choice(input) == "Y" {
			h.Enter(ctx, t)
			return
		}
		t.Reply("Okay, feel free to send another command.")
		t.Reset()
	default:
		h.r.logger.Warn("unknown mail step, resetting", "node", t.From, "step", st.Step)
		h.r.enter(ctx, t, session.TagMainMenu)
	}
}

func (h mailDialogue) menu(ctx context.Context, t *Turn, input string) {
	switch choice(input) {
	case "R":
		list, err := h.r.mail.List(ctx, t.From)
		if err != nil {
			h.r.logger.Error("cannot list mail", "node", t.From, "error", err)
			t.Reply("Error reading your mailbox. Please try again later.")
			t.Reset()
			return
		}
		if len(list) == 0 {
			t.Reply("There are no messages in your mailbox.📭")
			t.Reset()
			return
		}
		var b strings.Builder
		fmt.Fprintf(&b, "You have %d mail messages. Select a message number to read:", len(list))
		for _, m := range list {
			fmt.Fprintf(&b, "\n-%d-\nDate: %s\nFrom: %s\nSubject: %s",
				m.ID, domain.FormatDate(m.Date), m.SenderShortName, m.Subject)
		}
		t.Reply(b.String())
		t.Set(session.At(session.TagMail, mailStepSelect))
	case "S":
		t.Reply("What is the Short Name of the node you want to leave a message for?")
		t.Set(session.At(session.TagMail, mailStepRecipient))
	case ExitMarker:
		h.r.enter(ctx, t, session.TagMainMenu)
	default:
		h.Enter(ctx, t)
	}
}

func (h mailDialogue) recipient(ctx context.Context, t *Turn, input string) {
	nodes := h.r.dir.NodesByShortName(input)
	switch len(nodes) {
	case 0:
		t.Reply("I'm unable to find that node in my database.")
		h.r.enter(ctx, t, session.TagMainMenu)
	case 1:
		h.askSubject(t, nodes[0])
	default:
		var b strings.Builder
		b.WriteString("There are multiple nodes with that short name. Which one would you like to leave a message for?")
		for i, n := range nodes {
			fmt.Fprintf(&b, "\n[%d] %s", i, n.DisplayName())
		}
		t.Reply(b.String())
		next := session.At(session.TagMail, mailStepPick)
		next.Candidates = nodes
		t.Set(next)
	}
}

func (h mailDialogue) askSubject(t *Turn, to domain.NodeInfo) {
	t.Replyf("What is the subject of your message to %s?\nKeep it short.", to.DisplayName())
	next := session.At(session.TagMail, mailStepSubject)
	next.Recipient = to.ID
	t.Set(next)
}

func (h mailDialogue) deliver(ctx context.Context, t *Turn, st session.State) {
	recipient := st.Recipient
	if st.ReplyTo != 0 {
		sender, err := h.r.mail.SenderOf(ctx, st.ReplyTo)
		if err != nil {
			h.r.logger.Info("reply target gone", "node", t.From, "mail_id", st.ReplyTo, "error", err)
			t.Reply("Mail not found")
			t.Reset()
			return
		}
		recipient = sender
	}

	_, err := h.r.mail.Send(ctx, &service.SendMailRequest{
		Sender:          t.From,
		SenderShortName: t.senderShortName(),
		Recipient:       recipient,
		Subject:         st.Subject,
		Content:         st.Content,
		Origin:          service.OriginLocal,
	})
	if err != nil {
		h.r.logger.Error("cannot send mail", "node", t.From, "recipient", recipient, "error", err)
		t.Reply("Error sending mail. Please try again later.")
		t.Reset()
		return
	}

	t.Replyf("Mail has been posted to the mailbox of %s.\n(╯°□°)╯📨📬", h.r.nodeName(recipient))
	t.Reply("Would you like to do something else with mail? [Y]es [N]o")
	t.Set(session.At(session.TagMail, mailStepAgain))
}

// showMail displays one of the sender's messages and offers keep, delete
// or reply. full adds a blank line between the header and the body.
func (r *Router) showMail(ctx context.Context, t *Turn, id int64, full bool) {
	m, err := r.mail.Read(ctx, id, t.From)
	if err != nil {
		if !errors.Is(err, domain.ErrMailNotFound) {
			r.logger.Error("cannot read mail", "node", t.From, "mail_id", id, "error", err)
		} else {
			r.logger.Info("mail not found for reader", "node", t.From, "mail_id", id)
		}
		t.Reply("Mail not found")
		t.Reset()
		return
	}

	sep := "\n"
	if full {
		sep = "\n\n"
	}
	t.Replyf("Date: %s\nFrom: %s\nSubject: %s%s%s",
		domain.FormatDate(m.Date), m.SenderShortName, m.Subject, sep, m.Content)
	t.Reply(mailActions)

	next := session.At(session.TagMail, mailStepAction)
	next.MailID = m.ID
	next.UniqueID = m.UniqueID
	next.Sender = m.SenderShortName
	next.Subject = m.Subject
	t.Set(next)
}

func (r *Router) mailAction(ctx context.Context, t *Turn, st session.State, input string) {
	switch choice(input) {
	case "D":
		if _, err := r.mail.Delete(ctx, st.UniqueID, t.From, service.OriginLocal); err != nil {
			r.logger.Error("cannot delete mail", "node", t.From, "unique_id", st.UniqueID, "error", err)
			t.Reply("Error deleting the message. Please try again later.")
			t.Reset()
			return
		}
		t.Reply("The message has been deleted 🗑️")
		t.Reset()
	case "R":
		t.Replyf("Send your reply to %s now, followed by a message with END", st.Sender)
		next := session.At(session.TagMail, mailStepBody)
		next.ReplyTo = st.MailID
		next.Subject = "Re: " + st.Subject
		t.Set(next)
	default:
		t.Reply("The message has been kept in your inbox.✉️")
		t.Reset()
	}
}

func (r *Router) nodeName(id domain.NodeID) string {
	if n, ok := r.dir.Node(id); ok {
		return n.DisplayName()
	}
	return "Node " + string(id)
}
