// Package notify holds the local side effects of a received notification:
// desktop popups (with optional rate limiting) and the exec hook that hands
// each message to an external command.
//
// Desktop, RateLimited and Multi implement notice.Notifier. Command
// implements notice.Observer and is registered on the dispatcher.
package notify
