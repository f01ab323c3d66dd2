// Package mail builds MIME messages and delivers them through one of several
// transports: an authenticated SMTP relay, the Gmail API, Amazon SES, or the
// process log for development.
//
// Every transport implements Transport and reports failures as
// *TransportError.
package mail
