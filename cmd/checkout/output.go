package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"tokocheckout/internal/checkout"
	"tokocheckout/internal/models"
)

// rupiah formats an amount the way Indonesian receipts do, e.g. Rp168.800.
func rupiah(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	return sign + "Rp" + b.String()
}

func printSummary(out io.Writer, snap checkout.Snapshot) {
	s := snap.Summary
	for _, item := range snap.Draft.Items {
		fmt.Fprintf(out, "  %-30s %3d x %s\n", item.ProductName, item.Quantity, rupiah(item.Price))
	}
	line := func(label string, amount int64) {
		fmt.Fprintf(out, "  %-30s %14s\n", label, rupiah(amount))
	}
	line(fmt.Sprintf("Subtotal (%d items)", s.TotalItems), s.Subtotal)
	if snap.Draft.Shipping != nil {
		line("Shipping "+snap.Draft.Shipping.Carrier+" "+snap.Draft.Shipping.Service, s.ShippingCost)
	}
	if s.InsuranceCost > 0 {
		line("Shipping insurance", s.InsuranceCost)
	}
	if s.WarrantyCost > 0 {
		line("Warranty", s.WarrantyCost)
	}
	line("Service fee", s.ServiceFee)
	if s.ApplicationFee > 0 {
		line("Application fee", s.ApplicationFee)
	}
	if s.TotalDiscount > 0 {
		line("Discount", -s.TotalDiscount)
	}
	if s.Bonus > 0 {
		line("Bonus", -s.Bonus)
	}
	line("Total", s.AmountDue())
	if s.Savings > 0 {
		fmt.Fprintf(out, "  You save %s\n", rupiah(s.Savings))
	}
	if !snap.CanSubmit {
		fmt.Fprintf(out, "  Missing: %s\n", strings.Join(snap.Missing, ", "))
	}
}

func printPayment(out io.Writer, p *models.Payment) {
	fmt.Fprintf(out, "Order %s: pay %s before %s\n", p.OrderID, rupiah(p.Amount), p.ExpiresAt.Local().Format("02 Jan 2006 15:04"))
	switch p.Method {
	case models.PaymentMethodBankTransfer:
		fmt.Fprintf(out, "  %s virtual account: %s\n", strings.ToUpper(p.Bank), p.VirtualAccountNumber)
	case models.PaymentMethodQRIS:
		fmt.Fprintf(out, "  Scan QRIS: %s\n", p.QRCodeURL)
	}
}

func printUpdate(out io.Writer, u checkout.PollUpdate) {
	switch {
	case u.Err != nil:
		fmt.Fprintf(out, "  [%s] status check failed: %v\n", u.State, u.Err)
	case u.ExpiredLocally && !u.Payment.Status.IsTerminal():
		fmt.Fprintf(out, "  [%s] %s, time is up, waiting for the store to confirm\n", u.State, u.Payment.Status)
	default:
		fmt.Fprintf(out, "  [%s] %s, %s left\n", u.State, u.Payment.Status, countdown(u.Remaining))
	}
}

// countdown renders a remaining duration as HH:MM:SS.
func countdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	return fmt.Sprintf("%02d:%02d:%02d", h, m, d/time.Second)
}
