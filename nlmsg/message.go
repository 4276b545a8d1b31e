package nlmsg

import "fmt"

// Message is a single netlink message sliced out of a larger buffer.
type Message struct {
	Header Header

	// Data holds everything after the header.
	Data []byte

	// Raw holds the whole message, header included.
	Raw []byte
}

// MessageIterator walks a batch of back-to-back messages, the way a
// netlink socket hands several of them over in a single datagram.
type MessageIterator struct {
	b   []byte
	cur Message
	err error
}

func Messages(b []byte) *MessageIterator {
	return &MessageIterator{b: b}
}

// Next advances to the next message. It returns false once the batch is
// exhausted or a malformed message is found, in which case Err reports
// the problem and Rest holds the offending bytes.
func (it *MessageIterator) Next() bool {
	if it.err != nil || len(it.b) == 0 {
		return false
	}

	h, err := ParseHeader(it.b)
	if err != nil {
		it.err = err
		return false
	}

	raw := it.b[:h.Length]
	it.cur = Message{Header: h, Data: raw[HeaderLen:], Raw: raw}

	adv := Align(int(h.Length))
	if adv > len(it.b) {
		adv = len(it.b)
	}
	it.b = it.b[adv:]

	return true
}

func (it *MessageIterator) Message() Message {
	return it.cur
}

func (it *MessageIterator) Err() error {
	return it.err
}

// Rest returns the bytes not consumed yet.
func (it *MessageIterator) Rest() []byte {
	return it.b
}

// ParseMessages splits b into its messages. Unlike the iterator it fails
// on the first malformed message.
func ParseMessages(b []byte) ([]Message, error) {
	msgs := []Message{}

	it := Messages(b)
	for it.Next() {
		msgs = append(msgs, it.Message())
	}

	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("error parsing message %d: %w", len(msgs), err)
	}

	return msgs, nil
}
