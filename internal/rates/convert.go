package rates

import "MarketSeries/internal/model"

// Convert computes the final price of a joined row.
//
//   - convert_price == false: factor and rate are taken as 1, so the result is the price itself,
//     whatever the row holds for them.
//   - convert_price == true: price/conversion_factor + spot_mid_rate.
//   - otherwise, or when an operand is absent: a diagnostic listing every absent field
//     among convert_price, conversion_factor, spot_mid_rate in that order.
func Convert(row model.JoinedRow) model.FinalPrice {
	if convert, known := row.ConvertPrice.Get(); known && !convert {
		return model.Numeric(row.Price)
	}

	if missing := missingFields(row); len(missing) > 0 {
		return model.Diagnostic(missing...)
	}
	return model.Numeric(row.Price/row.ConversionFactor.Value + row.SpotMidRate.Value)
}

// Price wraps row with its final price.
func Price(row model.JoinedRow) model.PricedRow {
	return model.PricedRow{JoinedRow: row, FinalPrice: Convert(row)}
}

func missingFields(row model.JoinedRow) []model.Field {
	var missing []model.Field
	if !row.ConvertPrice.Valid {
		missing = append(missing, model.FieldConvertPrice)
	}
	if !row.ConversionFactor.Valid {
		missing = append(missing, model.FieldConversionFactor)
	}
	if !row.SpotMidRate.Valid {
		missing = append(missing, model.FieldSpotMidRate)
	}
	return missing
}
