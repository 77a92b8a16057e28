package sales

// ToSellerView maps a persisted seller to its response shape.
func ToSellerView(s *Seller) *SellerView {
	if s == nil {
		return nil
	}
	return &SellerView{
		ID:               s.ID,
		Name:             s.Name,
		ContactInfo:      s.ContactInfo,
		RegistrationDate: s.RegistrationDate,
		Version:          s.Version,
	}
}

// ToSellerViews maps a slice of sellers, never returning nil.
func ToSellerViews(sellers []*Seller) []*SellerView {
	views := make([]*SellerView, 0, len(sellers))
	for _, s := range sellers {
		views = append(views, ToSellerView(s))
	}
	return views
}

// ToTransactionView maps a persisted transaction, embedding its seller when loaded.
func ToTransactionView(t *Transaction) *TransactionView {
	if t == nil {
		return nil
	}
	return &TransactionView{
		ID:              t.ID,
		Seller:          ToSellerView(t.Seller),
		Amount:          t.Amount,
		PaymentType:     t.PaymentType,
		TransactionDate: t.TransactionDate,
		Version:         t.Version,
	}
}

// ToTransactionViews maps a slice of transactions, never returning nil.
func ToTransactionViews(transactions []*Transaction) []*TransactionView {
	views := make([]*TransactionView, 0, len(transactions))
	for _, t := range transactions {
		views = append(views, ToTransactionView(t))
	}
	return views
}

// ToTransactionFlatView builds the flat projection of a transaction and its seller.
func ToTransactionFlatView(t *Transaction) *TransactionFlatView {
	if t == nil {
		return nil
	}
	flat := &TransactionFlatView{
		ID:              t.ID,
		Amount:          t.Amount,
		PaymentType:     t.PaymentType,
		TransactionDate: t.TransactionDate,
		Version:         t.Version,
	}
	if t.Seller != nil {
		flat.Seller = FlatSellerView{
			ID:               t.Seller.ID,
			Name:             t.Seller.Name,
			ContactInfo:      t.Seller.ContactInfo,
			RegistrationDate: t.Seller.RegistrationDate,
			Version:          t.Seller.Version,
		}
	}
	return flat
}
