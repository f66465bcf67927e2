package models

import "testing"

func TestMessageValidate(t *testing.T) {
	valid := Message{ID: "m1", ContactID: "5511999999999@s.whatsapp.net", Sender: SenderCustomer, Content: "Olá", Timestamp: 1700000000}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid message rejected: %v", err)
	}

	cases := []struct {
		name string
		msg  Message
		want error
	}{
		{"missing id", Message{ContactID: "x", Sender: SenderCustomer, Content: "oi"}, ErrEmptyMessageID},
		{"missing contact", Message{ID: "m1", Sender: SenderCustomer, Content: "oi"}, ErrEmptyContactID},
		{"blank content", Message{ID: "m1", ContactID: "x", Sender: SenderCustomer, Content: "   "}, ErrEmptyContent},
		{"bad sender", Message{ID: "m1", ContactID: "x", Sender: "robot", Content: "oi"}, ErrInvalidSender},
	}
	for _, tc := range cases {
		if err := tc.msg.Validate(); err != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestIsValidSender(t *testing.T) {
	if !IsValidSender(SenderCustomer) || !IsValidSender(SenderSalesperson) {
		t.Error("known senders should be valid")
	}
	if IsValidSender("bot") {
		t.Error("unknown sender should be invalid")
	}
}

func TestClientDataIsEmpty(t *testing.T) {
	if !(ClientData{}).IsEmpty() {
		t.Error("zero value should be empty")
	}
	if (ClientData{Name: "Ana"}).IsEmpty() {
		t.Error("named client should not be empty")
	}
	if (ClientData{Needs: []string{"estoque"}}).IsEmpty() {
		t.Error("client with needs should not be empty")
	}
}

func TestSuggestionRequestValidate(t *testing.T) {
	req := SuggestionRequest{Query: "Qual o preço do plano Pro?"}
	if err := req.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
	req = SuggestionRequest{Query: "  "}
	if err := req.Validate(); err != ErrEmptyQuery {
		t.Errorf("expected ErrEmptyQuery, got %v", err)
	}
}
