// Package payments wraps the individual PesaFlow payment operations:
// push payments, payouts, callback URL registration, and transaction
// status queries and listings.
//
// Every wrapper is a thin data-shaping layer over gateway.Client: the
// wrapper fixes the endpoint path and payload shape and declares the
// operation's success predicate (a ResponseCode of "0"); token
// handling, retries and error classification all happen in the gateway
// package.
package payments
