// Package notifier fans an alert out to the configured admin chats.
//
// Delivery is synchronous and ordered: admins are contacted one after another
// in the configured order, and the first failed send aborts the broadcast.
// Admins after the failing one are not contacted, and admins before it are not
// told about the failure. There are no retries.
//
// The admin list is copied at construction and never changes afterwards.
package notifier
