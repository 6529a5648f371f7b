package messaging

import (
	"encoding/xml"
	"net/http"
)

// twimlResponse is the TwiML document Twilio expects in reply to an SMS
// webhook. An empty Message list acknowledges without replying.
type twimlResponse struct {
	XMLName  xml.Name `xml:"Response"`
	Messages []string `xml:"Message,omitempty"`
}

// WriteTwiML writes a TwiML response with an optional reply message.
func WriteTwiML(w http.ResponseWriter, reply string) {
	resp := twimlResponse{}
	if reply != "" {
		resp.Messages = []string{reply}
	}
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(xml.Header))
	xml.NewEncoder(w).Encode(resp)
}
