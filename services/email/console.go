package emailsvc

import (
	"fmt"
	"log"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/dusabe/tathmini/core"
)

var (
	SentMessages = make([]core.EmailMessage, 0)
	mu           sync.Mutex
)

type consoleService struct {
	defaultFromEmail mail.Address
	subjPrefix       string
	disableOutput    bool
}

var _ core.EmailService = (*consoleService)(nil)

func NewConsoleService() core.EmailService {
	return &consoleService{
		defaultFromEmail: core.Conf.DefaultFromEmail,
		subjPrefix:       "[" + core.Conf.AppName + "] ",
	}
}

func (svc consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go svc.sendMessage(msg)
	}
}

func (svc consoleService) sendMessage(msg *core.EmailMessage) {
	err := msg.Render()
	if err != nil {
		log.Fatalf("%+v", errors.Wrap(err, "rendering email"))
	}
	if msg.HasRecipients() && (msg.HasContent() || msg.HasAttachments()) {
		svc.send(*msg)
		mu.Lock()
		SentMessages = append(SentMessages, *msg)
		mu.Unlock()
	}
}

func (svc consoleService) send(msg core.EmailMessage) {
	body := new(strings.Builder)

	headers := []struct{ name, value string }{
		{"From", svc.defaultFromEmail.String()},
		{"MIME-Version", "1.0"},
		{"Date", time.Now().Format(time.RFC1123Z)},
		{"Subject", svc.subjPrefix + msg.Subject},
		{"To", joinAddresses(msg.To)},
		{"CC", joinAddresses(msg.Cc)},
		{"BCC", joinAddresses(msg.Bcc)},
	}
	for _, h := range headers {
		if h.value == "" {
			continue
		}
		_, _ = fmt.Fprintf(body, "%s: %s\r\n", h.name, h.value)
	}

	altW := multipart.NewWriter(body)
	defer altW.Close()

	var mixedW *multipart.Writer
	contentType, boundary := "multipart/alternative", altW.Boundary()
	if msg.HasAttachments() {
		mixedW = multipart.NewWriter(body)
		defer mixedW.Close()
		contentType, boundary = "multipart/mixed", mixedW.Boundary()
	}
	_, _ = fmt.Fprintf(body, "Content-Type: %s; boundary=%s\r\n\r\n", contentType, boundary)

	if mixedW != nil {
		hdr := textproto.MIMEHeader{"Content-Type": {"multipart/alternative; boundary=" + altW.Boundary()}}
		if _, err := mixedW.CreatePart(hdr); err != nil {
			log.Fatalf("%+v", errors.Wrap(err, "creating multipart/alternative part"))
		}
	}

	writePart(altW, textproto.MIMEHeader{"Content-Type": {"text/plain"}}, msg.TextContent)
	if msg.TemplateName != "" {
		writePart(altW, textproto.MIMEHeader{"Content-Type": {"text/html"}}, msg.HTMLContent)
	}

	if mixedW != nil {
		for _, at := range msg.Attachments {
			writePart(mixedW, textproto.MIMEHeader{
				"Content-Type":              {at.ContentType},
				"Content-Transfer-Encoding": {"base64"},
				"Content-Disposition":       {"attachment; filename=" + at.Filename},
			}, at.Content.String())
		}
	}

	if !svc.disableOutput {
		log.Printf("---------- outgoing mail ----------\n%s\n-----------------------------------", body.String())
	}
}

func writePart(mw *multipart.Writer, hdr textproto.MIMEHeader, content string) {
	w, err := mw.CreatePart(hdr)
	if err != nil {
		log.Fatalf("%+v", errors.Wrap(err, "creating "+hdr.Get("Content-Type")+" part"))
	}
	_, _ = fmt.Fprintf(w, "%s\r\n", content)
}

func joinAddresses(addrs []mail.Address) string {
	joined := make([]string, 0, len(addrs))
	for _, a := range addrs {
		joined = append(joined, a.String())
	}
	return strings.Join(joined, ", ")
}

type consoleServiceMock struct {
	consoleService
}

func NewConsoleServiceMock() core.EmailService {
	return &consoleServiceMock{
		consoleService: consoleService{
			defaultFromEmail: core.Conf.DefaultFromEmail,
			subjPrefix:       "[" + core.Conf.AppName + "] ",
			disableOutput:    true,
		},
	}
}

func (svc *consoleServiceMock) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		// run synchronously
		svc.sendMessage(msg)
	}
}
