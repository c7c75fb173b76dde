package domain

// ParameterNames lists the 55 raw perturbed-parameter columns in sample order.
var ParameterNames = []string{
	"bl_nuc", "ait_width", "cloud_ph", "carb_ff_ems_eur", "carb_ff_ems_nam", "carb_ff_ems_chi", "carb_ff_ems_asi",
	"carb_ff_ems_mar", "carb_ff_ems_r", "carb_bb_ems_sam", "carb_bb_ems_naf", "carb_bb_ems_saf", "carb_bb_ems_bnh",
	"carb_bb_ems_rnh", "carb_bb_ems_rsh", "carb_res_ems_chi", "carb_res_ems_asi", "carb_res_ems_afr", "carb_res_ems_lat",
	"carb_res_ems_r", "carb_ff_diam", "carb_bb_diam", "carb_res_diam", "prim_so4_diam", "sea_spray", "anth_so2_chi",
	"anth_so2_asi", "anth_so2_eur", "anth_so2_nam", "anth_so2_r", "volc_so2", "bvoc_soa", "dms", "prim_moc", "dry_dep_ait",
	"dry_dep_acc", "dry_dep_so2", "kappa_oc", "sig_w", "rain_frac", "cloud_ice_thresh", "conv_plume_scav", "scav_diam",
	"bc_ri", "oxidants_oh", "oxidants_o3", "bparam", "two_d_fsd_factor", "c_r_correl", "autoconv_exp_lwp", "autoconv_exp_nd",
	"dbsdtbs_turb_0", "ai", "m_ci", "a_ent_1_rp",
}

const scavDiamColumn = 42

// columnRange returns [from, to) as a slice of indices.
func columnRange(from, to int) []int {
	out := make([]int, 0, to-from)
	for c := from; c < to; c++ {
		out = append(out, c)
	}
	return out
}

// DefaultGPSchema drops scav_diam and the fossil-fuel and biomass-burning
// carbon emission groups, leaving 42 columns.
func DefaultGPSchema() ColumnSchema {
	return ColumnSchema{Drop: append(columnRange(3, 15), scavDiamColumn)}
}

// DefaultGAMSchema drops scav_diam and every carbon emission column,
// leaving 37 columns.
func DefaultGAMSchema() ColumnSchema {
	return ColumnSchema{Drop: append(columnRange(3, 20), scavDiamColumn)}
}
