// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package hardening

import (
	"path/filepath"

	"github.com/walteh/patchrc/pkg/operation"
	"github.com/walteh/patchrc/pkg/patch"
	"github.com/walteh/patchrc/pkg/pattern"
)

// ControllersDir is where the controllers live, relative to the base directory
const ControllersDir = "controllers"

const (
	SalesOrderFile      = "salesOrderController.js"
	DeliveryChallanFile = "deliveryChallanController.js"
	SalesInvoiceFile    = "salesInvoiceController.js"
)

const loggerImport = `import { info, error } from "../utils/logger.js";
`

const inventoryImports = `import { logStockMovement } from "../utils/stockMovementLogger.js";
import { calculatePaymentStatus } from "../utils/paymentStatusCalculator.js";
import { validateStockLevels, validateSalesOrderQuantities } from "../utils/inventoryValidator.js";
`

func literal(text string) pattern.Spec {
	return pattern.Spec{Text: text, Literal: true}
}

func importInventoryHelpers() patch.Patch {
	return patch.Patch{
		Name:        "import-inventory-helpers",
		Description: "import the stock movement, payment status and validation helpers",
		Match:       literal(loggerImport),
		Replace:     inventoryImports,
		Mode:        patch.ModeInsertAfter,
		Required:    true,
	}
}

// centralizePaymentStatus swaps the hand-written paid/partial/unpaid ladder
// for calculatePaymentStatus, keeping whichever paid amount the ladder used.
func centralizePaymentStatus(required bool) patch.Patch {
	return patch.Patch{
		Name:        "centralize-payment-status",
		Description: "use calculatePaymentStatus instead of an inline ladder",
		Match: pattern.Spec{Text: `        // Determine payment status
        let paymentStatus;
        if (@{paid} >= totalAmount) {
            paymentStatus = "paid";
        } else if (@{paid} > 0) {
            paymentStatus = "partial";
        } else {
            paymentStatus = "unpaid";
        }`},
		Replace: `        // Determine payment status - USE CENTRALIZED FUNCTION
        const paymentStatus = calculatePaymentStatus(totalAmount, @{paid}, 0);`,
		Required: required,
	}
}

// 📦 SalesOrder moves delivered stock in transit, releases reserved stock on
// invoicing and logs every movement.
func SalesOrder() *patch.Set {
	return patch.MustNewSet(SalesOrderFile,
		importInventoryHelpers(),
		patch.Patch{
			Name:        "deliver-in-transit",
			Description: "track delivered stock as in transit and log the movement",
			Match: literal(`            // Update delivered quantity in sales order
            soItem.deliveredQty += dcItem.quantity;

            // Reduce ONLY actual stock (reserved stock released on invoice)
            await Item.findByIdAndUpdate(dcItem.item, {
                $inc: { stockQty: -dcItem.quantity },
            });`),
			Replace: `            // Update delivered quantity in sales order
            soItem.deliveredQty += dcItem.quantity;

            // ERP-GRADE: Update stock with in-transit tracking
            const item = await Item.findById(dcItem.item);

            // Capture previous state
            const previousState = {
                stockQty: item.stockQty,
                reservedStock: item.reservedStock,
                inTransitStock: item.inTransitStock || 0,
            };

            // Reduce actual stock and increase in-transit
            item.stockQty -= dcItem.quantity;
            item.inTransitStock = (item.inTransitStock || 0) + dcItem.quantity;

            // Validate stock levels
            validateStockLevels(item);

            await item.save();

            // Capture new state
            const newState = {
                stockQty: item.stockQty,
                reservedStock: item.reservedStock,
                inTransitStock: item.inTransitStock,
            };

            // Log DELIVER movement
            await logStockMovement(
                item,
                "DELIVER",
                dcItem.quantity,
                salesOrder._id,
                "SalesOrder",
                req.user._id,
                previousState,
                { ...previousState, stockQty: item.stockQty }
            );

            // Log IN_TRANSIT movement
            await logStockMovement(
                item,
                "IN_TRANSIT",
                dcItem.quantity,
                salesOrder._id,
                "SalesOrder",
                req.user._id,
                { ...previousState, stockQty: item.stockQty },
                newState
            );`,
			Required: true,
		},
		patch.Patch{
			Name:        "validate-delivered-quantities",
			Description: "validate the order once every challan item is processed",
			Match: literal(`        }

        // Generate unique challan number`),
			Replace: `        }

        // Validate Sales Order quantities
        validateSalesOrderQuantities(salesOrder);

        // Generate unique challan number`,
			Required: true,
		},
		centralizePaymentStatus(true),
		patch.Patch{
			Name:        "release-reserved-on-invoice",
			Description: "release reserved stock, drain in-transit stock and log the invoice movement",
			Match: literal(`            // Update invoiced quantity in sales order
            soItem.invoicedQty += invItem.quantity;
        }

        const totalAmount = subtotal - discount;`),
			Replace: `            // Update invoiced quantity in sales order
            soItem.invoicedQty += invItem.quantity;

            // ERP-GRADE: Release reserved stock and reduce in-transit
            const item = await Item.findById(invItem.item);

            const previousState = {
                stockQty: item.stockQty,
                reservedStock: item.reservedStock,
                inTransitStock: item.inTransitStock || 0,
            };

            // Release reserved stock
            item.reservedStock -= invItem.quantity;

            // Reduce in-transit stock (if any)
            if (item.inTransitStock > 0) {
                item.inTransitStock = Math.max(0, item.inTransitStock - invItem.quantity);
            }

            validateStockLevels(item);
            await item.save();

            const newState = {
                stockQty: item.stockQty,
                reservedStock: item.reservedStock,
                inTransitStock: item.inTransitStock,
            };

            // Log INVOICE movement
            await logStockMovement(
                item,
                "INVOICE",
                invItem.quantity,
                salesOrder._id,
                "SalesOrder",
                req.user._id,
                previousState,
                newState
            );
        }

        // Validate Sales Order quantities
        validateSalesOrderQuantities(salesOrder);

        const totalAmount = subtotal - discount;`,
			Required: true,
		},
	)
}

// 📦 DeliveryChallan marks the invoice conversion as idempotent and hides
// system generated and deleted challans from listings. The payment status
// rewrite only applies to controllers that still carry the inline ladder.
func DeliveryChallan() *patch.Set {
	return patch.MustNewSet(DeliveryChallanFile,
		importInventoryHelpers(),
		patch.Patch{
			Name:     "mark-idempotency-check",
			Match:    literal("export const convertToInvoice = async (req, res) => {\n    try {\n"),
			Replace:  "        // ERP-GRADE: Idempotency check\n",
			Mode:     patch.ModeInsertAfter,
			Required: true,
		},
		patch.Patch{
			Name:     "mark-already-converted",
			Match:    literal("        // Validate not already converted\n"),
			Replace:  "        // ERP-GRADE: Idempotency - fail if already converted\n",
			Mode:     patch.ModeInsertBefore,
			Required: true,
		},
		centralizePaymentStatus(false),
		patch.Patch{
			Name:        "exclude-hidden-challans",
			Description: "skip system generated and deleted challans",
			Match: literal(`export const getAllDeliveryChallans = async (req, res) => {
    try {
        const challans = await DeliveryChallan.find({ createdBy: req.user._id })`),
			Replace: `export const getAllDeliveryChallans = async (req, res) => {
    try {
        const challans = await DeliveryChallan.find({
            createdBy: req.user._id,
            systemGenerated: { $ne: true },
            isDeleted: { $ne: true }
        })`,
			Required: true,
		},
	)
}

// 📦 SalesInvoice hides deleted invoices from the invoice listing. The
// summary query, which ends in a semicolon, is left alone.
func SalesInvoice() *patch.Set {
	return patch.MustNewSet(SalesInvoiceFile,
		patch.Patch{
			Name:     "import-payment-status",
			Match:    literal(loggerImport),
			Replace:  "import { calculatePaymentStatus } from \"../utils/paymentStatusCalculator.js\";\n",
			Mode:     patch.ModeInsertAfter,
			Required: true,
		},
		patch.Patch{
			Name:        "exclude-deleted-invoices",
			Description: "skip deleted invoices in the listing",
			Match:       literal("    const invoices = await Invoice.find({ createdBy: req.user._id })\n"),
			Replace: `    const invoices = await Invoice.find({
      createdBy: req.user._id,
      isDeleted: { $ne: true }
    })
`,
			Required: true,
		},
	)
}

// 🎯 Targets binds the three sets to their controllers under dir, in the
// order they are applied
func Targets(dir string) []operation.Target {
	sets := []*patch.Set{SalesOrder(), DeliveryChallan(), SalesInvoice()}

	targets := make([]operation.Target, len(sets))
	for i, s := range sets {
		path := filepath.Join(dir, s.Target())
		targets[i] = operation.Target{Path: path, Set: s.WithTarget(path)}
	}
	return targets
}
