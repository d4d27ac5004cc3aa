package risk

// VolumeQuality 把近期成交量相对均值的倍数映射为交易资格与仓位折扣。
// 分档依据波段交易经验：低于 0.7x 的“死量”行情假突破概率极高，直接禁止交易。
type VolumeQuality struct {
	Ratio          float64
	Classification string
	TradingAllowed bool
	// Multiplier 在仓位计算中与信心度相乘，取值 [0,1]。
	Multiplier float64
}

// ClassifyVolume 按量能倍数分档。
func ClassifyVolume(ratio float64) VolumeQuality {
	switch {
	case ratio >= 1.4:
		return VolumeQuality{Ratio: ratio, Classification: "STRONG", TradingAllowed: true, Multiplier: 1.0}
	case ratio >= 1.0:
		return VolumeQuality{Ratio: ratio, Classification: "ACCEPTABLE", TradingAllowed: true, Multiplier: 0.85}
	case ratio >= 0.7:
		return VolumeQuality{Ratio: ratio, Classification: "WEAK", TradingAllowed: true, Multiplier: 0.6}
	default:
		return VolumeQuality{Ratio: ratio, Classification: "DEAD", TradingAllowed: false, Multiplier: 0}
	}
}
