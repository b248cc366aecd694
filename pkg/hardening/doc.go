/*
Package hardening carries the built-in patch sets for the sales controllers.

	salesOrderController.js        in-transit stock, movement logging, quantity checks
	deliveryChallanController.js   idempotency markers, hidden challans
	salesInvoiceController.js      deleted invoices left out of listings

Every patch recognizes its own output, so the sets can be applied to a
controller that is already partly or fully hardened.
*/
package hardening
