package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mfigueira/caixinha/internal/common"
	"github.com/mfigueira/caixinha/internal/model"
	"github.com/mfigueira/caixinha/internal/service"
)

// SaveTransaction inserts a transaction header. It first writes the extended
// pricing-aware payload; when the deployed schema lacks those columns
// (surfaced as a SchemaMismatchError) it retries exactly once with the
// baseline payload. Any other failure propagates.
func (s *SQLiteStorage) SaveTransaction(ctx context.Context, txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("transaction is required")
	}

	err := s.insertExtended(ctx, txn)
	if err == nil {
		return nil
	}

	if common.IsSchemaMismatch(err) {
		s.logger.Warn("extended transaction insert hit schema drift, retrying with baseline payload",
			"transaction_id", txn.ID,
			"error", err)
		if legacyErr := s.insertLegacy(ctx, txn); legacyErr != nil {
			return fmt.Errorf("baseline transaction insert failed: %w", legacyErr)
		}
		return nil
	}

	return fmt.Errorf("failed to save transaction: %w", err)
}

func (s *SQLiteStorage) insertExtended(ctx context.Context, txn *model.Transaction) error {
	var netAmount, feePercent any
	if txn.NetAmount != nil {
		netAmount = txn.NetAmount.String()
	}
	if txn.FeePercentApplied != nil {
		feePercent = txn.FeePercentApplied.String()
	}
	var settlementDate any
	if txn.SettlementDate != nil {
		settlementDate = *txn.SettlementDate
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (
			id, owner_id, kind, gross_amount, category, description,
			client_name, payment_method, date, status, created_at,
			net_amount, fee_percent_applied, settlement_date,
			installment_count, card_brand
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.OwnerID, string(txn.Kind), txn.GrossAmount.String(),
		txn.Category, txn.Description, txn.ClientName,
		string(txn.PaymentMethod), txn.Date, string(txn.Status),
		txn.CreatedAt, netAmount, feePercent, settlementDate,
		txn.InstallmentCount, string(txn.CardBrand),
	)
	return asSchemaMismatch(err, "transactions")
}

func (s *SQLiteStorage) insertLegacy(ctx context.Context, txn *model.Transaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (
			id, owner_id, kind, gross_amount, category, description,
			client_name, payment_method, date, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.OwnerID, string(txn.Kind), txn.GrossAmount.String(),
		txn.Category, txn.Description, txn.ClientName,
		string(txn.PaymentMethod), txn.Date, string(txn.Status),
		txn.CreatedAt,
	)
	return err
}

// SaveInstallments inserts the planned installment rows of a sale as one
// batch, with the same two-tier fallback as the header: on schema drift the
// batch is retried once against the baseline installment columns.
func (s *SQLiteStorage) SaveInstallments(ctx context.Context, installments []model.Installment) error {
	if len(installments) == 0 {
		return nil
	}

	err := s.insertInstallments(ctx, installments, true)
	if err == nil {
		return nil
	}

	if common.IsSchemaMismatch(err) {
		s.logger.Warn("installment batch hit schema drift, retrying with baseline payload",
			"transaction_id", installments[0].TransactionID,
			"error", err)
		if legacyErr := s.insertInstallments(ctx, installments, false); legacyErr != nil {
			return fmt.Errorf("baseline installment insert failed: %w", legacyErr)
		}
		return nil
	}

	return fmt.Errorf("failed to save installments: %w", err)
}

func (s *SQLiteStorage) insertInstallments(ctx context.Context, installments []model.Installment, extended bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin installment batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, inst := range installments {
		if extended {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO installments (
					transaction_id, sequence_number, gross_amount,
					net_amount, due_date, fee_percent_applied
				) VALUES (?, ?, ?, ?, ?, ?)`,
				inst.TransactionID, inst.SequenceNumber,
				inst.GrossAmount.String(), inst.NetAmount.String(),
				inst.DueDate, inst.FeePercentApplied.String(),
			)
		} else {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO installments (
					transaction_id, sequence_number, gross_amount, due_date
				) VALUES (?, ?, ?, ?)`,
				inst.TransactionID, inst.SequenceNumber,
				inst.GrossAmount.String(), inst.DueDate,
			)
		}
		if err != nil {
			return asSchemaMismatch(err, "installments")
		}
	}

	return tx.Commit()
}

// UpdateTransaction rewrites a transaction header and replaces its
// installment rows in one database transaction, so a failed rewrite leaves
// the stored row untouched. Schema drift gets the same two-tier fallback as
// the insert path: the whole rewrite is retried once with the baseline
// column set.
func (s *SQLiteStorage) UpdateTransaction(ctx context.Context, txn *model.Transaction, installments []model.Installment) error {
	if txn == nil {
		return fmt.Errorf("transaction is required")
	}

	err := s.rewriteTransaction(ctx, txn, installments, true)
	if err == nil || errors.Is(err, common.ErrNotFound) {
		return err
	}

	if common.IsSchemaMismatch(err) {
		s.logger.Warn("transaction rewrite hit schema drift, retrying with baseline payload",
			"transaction_id", txn.ID,
			"error", err)
		if legacyErr := s.rewriteTransaction(ctx, txn, installments, false); legacyErr != nil {
			return fmt.Errorf("baseline transaction rewrite failed: %w", legacyErr)
		}
		return nil
	}

	return fmt.Errorf("failed to update transaction: %w", err)
}

func (s *SQLiteStorage) rewriteTransaction(ctx context.Context, txn *model.Transaction, installments []model.Installment, extended bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin rewrite: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var res sql.Result
	if extended {
		var netAmount, feePercent any
		if txn.NetAmount != nil {
			netAmount = txn.NetAmount.String()
		}
		if txn.FeePercentApplied != nil {
			feePercent = txn.FeePercentApplied.String()
		}
		var settlementDate any
		if txn.SettlementDate != nil {
			settlementDate = *txn.SettlementDate
		}

		res, err = tx.ExecContext(ctx, `
			UPDATE transactions SET
				gross_amount = ?, category = ?, description = ?,
				client_name = ?, payment_method = ?, status = ?,
				net_amount = ?, fee_percent_applied = ?, settlement_date = ?,
				installment_count = ?, card_brand = ?
			WHERE id = ?`,
			txn.GrossAmount.String(), txn.Category, txn.Description,
			txn.ClientName, string(txn.PaymentMethod), string(txn.Status),
			netAmount, feePercent, settlementDate,
			txn.InstallmentCount, string(txn.CardBrand), txn.ID,
		)
	} else {
		res, err = tx.ExecContext(ctx, `
			UPDATE transactions SET
				gross_amount = ?, category = ?, description = ?,
				client_name = ?, payment_method = ?, status = ?
			WHERE id = ?`,
			txn.GrossAmount.String(), txn.Category, txn.Description,
			txn.ClientName, string(txn.PaymentMethod), string(txn.Status),
			txn.ID,
		)
	}
	if err != nil {
		return asSchemaMismatch(err, "transactions")
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return common.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM installments WHERE transaction_id = ?`, txn.ID); err != nil {
		return fmt.Errorf("failed to clear installments: %w", err)
	}

	for _, inst := range installments {
		if extended {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO installments (
					transaction_id, sequence_number, gross_amount,
					net_amount, due_date, fee_percent_applied
				) VALUES (?, ?, ?, ?, ?, ?)`,
				inst.TransactionID, inst.SequenceNumber,
				inst.GrossAmount.String(), inst.NetAmount.String(),
				inst.DueDate, inst.FeePercentApplied.String(),
			)
		} else {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO installments (
					transaction_id, sequence_number, gross_amount, due_date
				) VALUES (?, ?, ?, ?)`,
				inst.TransactionID, inst.SequenceNumber,
				inst.GrossAmount.String(), inst.DueDate,
			)
		}
		if err != nil {
			return asSchemaMismatch(err, "installments")
		}
	}

	return tx.Commit()
}

// GetTransactionByID loads one transaction header.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, kind, gross_amount, category, description,
			client_name, payment_method, date, status, created_at,
			net_amount, fee_percent_applied, settlement_date,
			installment_count, card_brand
		FROM transactions WHERE id = ?`, id)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	return txn, nil
}

// DeleteTransaction removes a transaction header and its installment rows.
// Used by the undo flow.
func (s *SQLiteStorage) DeleteTransaction(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM installments WHERE transaction_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete installments: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return common.ErrNotFound
	}

	return tx.Commit()
}

// GetBalance sums entradas and saidas for an owner over a period.
func (s *SQLiteStorage) GetBalance(ctx context.Context, ownerID string, start, end time.Time) (*service.BalanceSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, gross_amount FROM transactions
		WHERE owner_id = ? AND date >= ? AND date <= ?`,
		ownerID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query balance: %w", err)
	}
	defer func() { _ = rows.Close() }()

	summary := &service.BalanceSummary{}
	for rows.Next() {
		var kind, amountStr string
		if err := rows.Scan(&kind, &amountStr); err != nil {
			return nil, fmt.Errorf("failed to scan balance row: %w", err)
		}

		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt amount %q: %w", amountStr, err)
		}

		if model.EntryKind(kind) == model.KindEntrada {
			summary.Entradas = summary.Entradas.Add(amount)
		} else {
			summary.Saidas = summary.Saidas.Add(amount)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balance rows: %w", err)
	}

	summary.Saldo = summary.Entradas.Sub(summary.Saidas)
	return summary, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var txn model.Transaction
	var kind, method, status, grossStr string
	var category, description, clientName, netStr, feeStr, brand sql.NullString
	var settlement sql.NullTime
	var installments sql.NullInt64

	err := row.Scan(
		&txn.ID, &txn.OwnerID, &kind, &grossStr, &category, &description,
		&clientName, &method, &txn.Date, &status, &txn.CreatedAt,
		&netStr, &feeStr, &settlement, &installments, &brand,
	)
	if err != nil {
		return nil, err
	}

	txn.Kind = model.EntryKind(kind)
	txn.PaymentMethod = model.PaymentMethod(method)
	txn.Status = model.TransactionStatus(status)
	txn.Category = category.String
	txn.Description = description.String
	txn.ClientName = clientName.String
	txn.CardBrand = model.CardBrand(brand.String)

	gross, err := decimal.NewFromString(grossStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt gross amount %q: %w", grossStr, err)
	}
	txn.GrossAmount = gross

	if netStr.Valid {
		if net, err := decimal.NewFromString(netStr.String); err == nil {
			txn.NetAmount = &net
		}
	}
	if feeStr.Valid {
		if fee, err := decimal.NewFromString(feeStr.String); err == nil {
			txn.FeePercentApplied = &fee
		}
	}
	if settlement.Valid {
		t := settlement.Time
		txn.SettlementDate = &t
	}
	if installments.Valid {
		txn.InstallmentCount = int(installments.Int64)
	}

	return &txn, nil
}
