// Package notify renders and delivers authcore mail.
//
// A [Catalog] maps each otp.Purpose to its human-readable title, description
// and message. [CodeMailer] turns a generated code into a [Message] and hands
// it to a [Notifier]. Two notifiers ship with the package: [LogNotifier] for
// development and [AMQPNotifier], which publishes JSON email jobs to a
// RabbitMQ queue for an out-of-process mail worker.
package notify
