package notification

import "testing"

func TestNewMailSenderValidation(t *testing.T) {
	if _, err := NewMailSender(MailConfig{From: "no-reply@paysync.app"}); err == nil {
		t.Fatalf("expected error without host")
	}
	if _, err := NewMailSender(MailConfig{Host: "smtp.example.com"}); err == nil {
		t.Fatalf("expected error without from")
	}
	s, err := NewMailSender(MailConfig{Host: "smtp.example.com", From: "no-reply@paysync.app"})
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}
	if s.cfg.Port != 587 {
		t.Fatalf("port = %d, want 587", s.cfg.Port)
	}
}

func TestMailSenderBuildMessage(t *testing.T) {
	s, err := NewMailSender(MailConfig{Host: "smtp.example.com", From: "no-reply@paysync.app", FromName: "PaySync"})
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}
	msg, err := s.buildMessage(Message{Destination: "test@user.com", Subject: "Reset code", Body: "Your code is 4821"})
	if err != nil {
		t.Fatalf("build message: %v", err)
	}
	to := msg.GetTo()
	if len(to) != 1 || to[0].Address != "test@user.com" {
		t.Fatalf("unexpected recipients %v", to)
	}

	if _, err := s.buildMessage(Message{Destination: "not an address"}); err == nil {
		t.Fatalf("expected error for invalid recipient")
	}
}

func TestMailSenderClientOptions(t *testing.T) {
	plain := &MailSender{cfg: MailConfig{Host: "localhost", Port: 1025}}
	if n := len(plain.clientOptions()); n != 2 {
		t.Fatalf("plain options = %d, want 2", n)
	}
	ssl := &MailSender{cfg: MailConfig{Host: "smtp.example.com", Port: 465, TLS: true, Username: "u", Password: "p"}}
	if n := len(ssl.clientOptions()); n != 6 {
		t.Fatalf("ssl options = %d, want 6", n)
	}
}
