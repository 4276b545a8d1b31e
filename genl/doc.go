// Package genl implements the generic netlink core: a registry of families
// and a dispatcher routing inbound messages to the handlers of the
// addressed family and command.
//
// Families are registered on an explicit Registry. Lookups hand out
// reference counted handles so that Unregister can wait for every handler
// of the family to return before it removes it for good: once Unregister
// returns no handler of that family is running and none will start.
//
// A Dispatcher plugs into a transport through its Receive method. Every
// inbound message runs through the same steps: the message header is
// parsed, the family is looked up by the message type, the generic header
// is validated against the family's fixed header size, the command is
// resolved and finally exactly one handler is invoked: dumpit when the
// request carries the dump flags and doit otherwise.
package genl
